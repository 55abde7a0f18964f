package chat

import (
	"context"
	"log/slog"

	"github.com/axiomhub/axiom-gateway/internal/channel"
)

// Dispatch consumes inbound channel messages and answers them through
// the controller until the adapter's incoming channel closes or the
// context is done. Turns on different sessions are independent, so
// each one is handled on its own goroutine.
func Dispatch(ctx context.Context, adapter channel.Adapter, controller *Controller, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-adapter.Incoming():
			if !ok {
				return
			}
			go handleTurn(ctx, adapter, controller, logger, msg)
		}
	}
}

func handleTurn(ctx context.Context, adapter channel.Adapter, controller *Controller, logger *slog.Logger, msg *channel.Message) {
	result, err := controller.SendTurn(ctx, TurnRequest{
		UserID:    msg.UserID,
		SessionID: msg.SessionID,
		Text:      msg.Content,
	})
	if err != nil {
		reply := UnavailableReply
		if IsUserError(err) {
			reply = err.Error()
		}
		if sendErr := adapter.SendMessage(msg.UserID, &channel.Response{
			SessionID: msg.SessionID,
			Content:   reply,
		}); sendErr != nil {
			logger.Error("channel send failed", "channel", adapter.Name(), "error", sendErr)
		}
		return
	}

	if err := adapter.SendMessage(msg.UserID, &channel.Response{
		SessionID: result.SessionID,
		Content:   result.AssistantMessage,
	}); err != nil {
		logger.Error("channel send failed", "channel", adapter.Name(), "error", err)
	}
}
