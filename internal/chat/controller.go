// Package chat coordinates one user turn end to end: persistence,
// intent short-circuits, image handling, prompt assembly, and the
// model call.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/axiomhub/axiom-gateway/internal/agent"
	"github.com/axiomhub/axiom-gateway/internal/config"
	"github.com/axiomhub/axiom-gateway/internal/imaging"
	"github.com/axiomhub/axiom-gateway/internal/intent"
	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/metrics"
	"github.com/axiomhub/axiom-gateway/internal/prompt"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

const (
	// SmalltalkReply answers greetings without a model round trip.
	SmalltalkReply = "Hello! Ask me anything you want to research."
	// UnavailableReply hides provider/network failure detail from the
	// user.
	UnavailableReply = "The model is slow or unavailable right now. Please try again in a moment."
	// visionSystemPrompt drives the best-effort image description.
	visionSystemPrompt = "You are a vision assistant. Describe the image content concisely."

	titleLimit       = 60
	descriptionLimit = 500
)

// ErrEmptyTurn rejects turns with neither text nor image before any
// persistence happens.
var ErrEmptyTurn = errors.New("message cannot be empty")

// Gateway is the direct completion surface used for image turns and
// vision descriptions (no tool calling).
type Gateway interface {
	SendWithRetry(ctx context.Context, messages []llm.Message, opts llm.CompleteOptions) (string, error)
}

// Runner is the tool-calling loop used for text turns.
type Runner interface {
	Run(ctx context.Context, messages []llm.Message, enableWebSearch bool, modelOverride string) (string, error)
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	UserID    string
	SessionID string
	Text      string
	Image     []byte
}

// TurnResult is the reply for one turn. Sources are intentionally
// never surfaced.
type TurnResult struct {
	SessionID        string `json:"session_id"`
	AssistantMessage string `json:"assistant_message"`
	Sources          []any  `json:"sources"`
}

// Controller is the request-level coordinator for chat turns.
type Controller struct {
	llmCfg    config.LLMConfig
	chatCfg   config.ChatConfig
	store     store.Store
	gateway   Gateway
	loop      Runner
	assembler *prompt.Assembler
	logger    *slog.Logger
}

// NewController wires the turn coordinator.
func NewController(llmCfg config.LLMConfig, chatCfg config.ChatConfig, st store.Store, gateway Gateway, loop Runner, logger *slog.Logger) *Controller {
	return &Controller{
		llmCfg:    llmCfg,
		chatCfg:   chatCfg,
		store:     st,
		gateway:   gateway,
		loop:      loop,
		assembler: prompt.NewAssembler(llmCfg.KnowledgeCutoff, chatCfg.HistoryWindow),
		logger:    logger,
	}
}

// IsUserError reports whether err should surface as a 4xx-style
// message rather than a generic failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrEmptyTurn) || imaging.IsUserError(err)
}

// SendTurn handles one user turn and always produces an assistant
// reply unless the input itself is invalid.
func (c *Controller) SendTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && len(req.Image) == 0 {
		return nil, ErrEmptyTurn
	}

	session, err := c.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	userMessage, err := c.store.CreateMessage(ctx, session.ID, "user", text)
	if err != nil {
		return nil, err
	}
	title := ""
	if session.Title == "" {
		title = truncate(text, titleLimit)
	}
	if err := c.store.TouchSession(ctx, session.ID, title); err != nil {
		return nil, err
	}

	var compressed *imaging.Compressed
	if len(req.Image) > 0 {
		compressed, err = imaging.Compress(req.Image, c.chatCfg.MaxImageBytes, c.chatCfg.MaxImageEdge)
		if err != nil {
			metrics.TurnCount.WithLabelValues("image_rejected").Inc()
			return nil, err
		}
		if err := c.store.AddAttachment(ctx, store.Attachment{
			MessageID: userMessage.ID,
			Data:      compressed.Data,
			Width:     compressed.Width,
			Height:    compressed.Height,
			ByteSize:  compressed.ByteSize,
		}); err != nil {
			return nil, err
		}
	}

	if compressed == nil {
		normalized := intent.Normalize(text)
		outcome, staticReply := intent.Classify(normalized, false)
		switch outcome {
		case intent.Smalltalk:
			return c.cannedReply(ctx, session, SmalltalkReply, "smalltalk")
		case intent.StaticReply:
			return c.cannedReply(ctx, session, staticReply, "static")
		default:
			return c.modelReply(ctx, session, text, nil, outcome == intent.MandatorySearch)
		}
	}

	return c.modelReply(ctx, session, text, compressed, false)
}

// Sessions lists the user's sessions, most recently updated first.
func (c *Controller) Sessions(ctx context.Context, userID string, limit int) ([]store.Session, error) {
	return c.store.ListSessions(ctx, userID, limit)
}

// SessionMessages returns every message of a session the user owns.
func (c *Controller) SessionMessages(ctx context.Context, userID, sessionID string) ([]store.Message, error) {
	if _, err := c.store.GetSession(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	return c.store.ListMessages(ctx, sessionID)
}

// Attachments exposes stored attachments for a message.
func (c *Controller) Attachments(ctx context.Context, messageID string) ([]store.Attachment, error) {
	return c.store.Attachments(ctx, messageID)
}

func (c *Controller) resolveSession(ctx context.Context, req TurnRequest) (*store.Session, error) {
	if req.SessionID != "" {
		return c.store.GetSession(ctx, req.SessionID, req.UserID)
	}
	session, err := c.store.CreateSession(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	metrics.ActiveSessions.Inc()
	return session, nil
}

// cannedReply persists a fixed assistant reply and completes the turn
// with zero model calls.
func (c *Controller) cannedReply(ctx context.Context, session *store.Session, reply, outcome string) (*TurnResult, error) {
	if _, err := c.store.CreateMessage(ctx, session.ID, "assistant", reply); err != nil {
		return nil, err
	}
	if err := c.store.TouchSession(ctx, session.ID, ""); err != nil {
		return nil, err
	}
	metrics.TurnCount.WithLabelValues(outcome).Inc()
	return &TurnResult{SessionID: session.ID, AssistantMessage: reply, Sources: []any{}}, nil
}

// modelReply runs the model path: placeholder assistant row, optional
// vision description, assembly, gateway or tool loop, sources
// stripping, persistence. Gateway and loop failures collapse to the
// generic unavailability reply; the turn is never left without one.
func (c *Controller) modelReply(ctx context.Context, session *store.Session, text string, compressed *imaging.Compressed, mandatorySearch bool) (*TurnResult, error) {
	placeholder, err := c.store.CreateMessage(ctx, session.ID, "assistant", "")
	if err != nil {
		return nil, err
	}

	turn := prompt.Turn{Text: text}
	if compressed != nil {
		turn.ImageDataURI = compressed.DataURI()
		turn.ImageDescription = c.describeImage(ctx, text, turn.ImageDataURI)
	}

	var history []store.Message
	if compressed == nil {
		history, err = c.store.RecentMessages(ctx, session.ID, c.chatCfg.HistoryWindow)
		if err != nil {
			return nil, err
		}
	}

	messages := c.assembler.Build(history, turn, mandatorySearch && c.llmCfg.EnableWebSearch, nil)

	var reply string
	if compressed != nil {
		reply, err = c.gateway.SendWithRetry(ctx, messages, llm.CompleteOptions{})
	} else {
		reply, err = c.runLoop(ctx, messages)
	}
	if err != nil {
		c.logger.Error("model request failed", "session", session.ID, "error", err)
		reply = UnavailableReply
		metrics.TurnCount.WithLabelValues("failed").Inc()
	} else {
		metrics.TurnCount.WithLabelValues("answered").Inc()
	}

	reply = StripSources(reply)
	if reply == "" {
		reply = agent.FallbackReply
	}

	if err := c.store.UpdateMessageContent(ctx, placeholder.ID, reply); err != nil {
		return nil, err
	}
	if err := c.store.TouchSession(ctx, session.ID, ""); err != nil {
		return nil, err
	}

	return &TurnResult{SessionID: session.ID, AssistantMessage: reply, Sources: []any{}}, nil
}

// runLoop invokes the tool-calling loop with one whole-call retry on
// timeout. Individual loop iterations are never retried.
func (c *Controller) runLoop(ctx context.Context, messages []llm.Message) (string, error) {
	enable := c.llmCfg.EnableWebSearch
	override := ""
	if enable {
		override = c.llmCfg.SearchModel
	}
	reply, err := c.loop.Run(ctx, messages, enable, override)
	if err != nil && llm.IsTimeout(err) {
		return c.loop.Run(ctx, messages, enable, override)
	}
	return reply, err
}

// describeImage asks the model for a short description of the image.
// Best effort: any failure yields an empty description.
func (c *Controller) describeImage(ctx context.Context, text, dataURI string) string {
	ask := text
	if ask == "" {
		ask = "Describe the image."
	}
	messages := []llm.Message{
		llm.Text("system", visionSystemPrompt),
		{Role: "user", Content: []llm.ContentPart{
			llm.TextPart(ask),
			llm.ImagePart(dataURI),
		}},
	}
	description, err := c.gateway.SendWithRetry(ctx, messages, llm.CompleteOptions{})
	if err != nil {
		c.logger.Warn("image description failed", "error", err)
		return ""
	}
	return truncate(description, descriptionLimit)
}

// StripSources discards everything from a trailing "sources:" marker
// onward, case-insensitively. Input without the marker is returned
// unchanged.
func StripSources(text string) string {
	marker := strings.Index(strings.ToLower(text), "sources:")
	if marker == -1 {
		return text
	}
	return strings.TrimRight(text[:marker], " \t\r\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
