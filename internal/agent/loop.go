// Package agent drives the bounded tool-calling loop against the
// chat-completion provider.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/metrics"
)

// FallbackReply is returned when the step budget runs out without the
// model ever producing text.
const FallbackReply = "I couldn't complete a grounded answer for that request. Please try rephrasing."

// maxSteps caps the number of provider round trips per request.
const maxSteps = 4

// Completer is the gateway surface the loop depends on.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, messages []llm.Message, opts llm.CompleteOptions) (*llm.Choice, error)
}

// Loop runs chat completions until the model produces text, declines
// to call tools, or the step budget is exhausted.
type Loop struct {
	client   Completer
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewLoop creates a loop with the builtin web-search handler
// registered.
func NewLoop(client Completer, logger *slog.Logger) *Loop {
	l := &Loop{client: client, logger: logger}
	l.register()
	return l
}

// Run drives the conversation to a final text answer. Each iteration
// posts the working messages; a tool-calling response appends the
// assistant turn verbatim plus one synthesized tool-result message per
// call, then loops. Non-empty text wins immediately, even when tool
// calls are present alongside it.
func (l *Loop) Run(ctx context.Context, messages []llm.Message, enableWebSearch bool, modelOverride string) (string, error) {
	if !l.client.Configured() {
		return llm.NotConfiguredReply, nil
	}

	working := append([]llm.Message(nil), messages...)
	opts := llm.CompleteOptions{Model: modelOverride, EnableWebSearch: enableWebSearch}

	for step := 0; step < maxSteps; step++ {
		choice, err := l.client.Complete(ctx, working, opts)
		if err != nil {
			return "", err
		}

		if text := choice.Message.Text(); text != "" {
			return text, nil
		}
		if choice.FinishReason != "tool_calls" && len(choice.Message.ToolCalls) == 0 {
			break
		}

		working = append(working, choice.Message.AsMessage())

		results := l.toolResults(choice.Message.ToolCalls)
		if len(results) == 0 {
			break
		}
		working = append(working, results...)
	}

	return FallbackReply, nil
}

// toolResults synthesizes one tool message per call.
func (l *Loop) toolResults(calls []llm.ToolCall) []llm.Message {
	var results []llm.Message
	for _, call := range calls {
		name := call.Function.Name
		metrics.ToolCalls.WithLabelValues(name).Inc()

		args := decodeArguments(call.Function.Arguments)
		result := l.handlerFor(name)(name, args)

		content, err := json.Marshal(result)
		if err != nil {
			l.logger.Warn("tool result not serializable", "tool", name, "error", err)
			content, _ = json.Marshal(map[string]any{"raw": call.Function.Arguments})
		}

		results = append(results, llm.Message{
			Role:       "tool",
			ToolCallID: call.ID,
			Name:       name,
			Content:    string(content),
		})
	}
	return results
}
