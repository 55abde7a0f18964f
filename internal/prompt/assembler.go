// Package prompt builds the ordered message list for one chat turn.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/searchctx"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

// SystemPrompt fixes the assistant persona.
const SystemPrompt = "You are Axiom, a fast research assistant. Prioritize speed and accuracy. " +
	"Use provided web context when available. Do not invent facts; acknowledge gaps."

// MandatorySearchNotice is injected when classification demands live
// evidence before answering.
const MandatorySearchNotice = "This question requires up-to-date information. " +
	"Call the web search tool before answering."

// Turn is the current user input being assembled.
type Turn struct {
	Text string
	// ImageDataURI is set for image-bearing turns.
	ImageDataURI string
	// ImageDescription is the optional vision-derived summary.
	ImageDescription string
}

// Assembler builds conversation preambles and history windows.
type Assembler struct {
	KnowledgeCutoff string
	HistoryWindow   int
	// Now is swappable for tests.
	Now func() time.Time
}

// NewAssembler creates an assembler with the given cutoff label and
// history window size.
func NewAssembler(knowledgeCutoff string, historyWindow int) *Assembler {
	return &Assembler{
		KnowledgeCutoff: knowledgeCutoff,
		HistoryWindow:   historyWindow,
		Now:             time.Now,
	}
}

// Build assembles the ordered message sequence: system prompt, dated
// policy message, optional mandatory-search notice, optional
// pre-fetched search context block, then either the replayed history
// window or the single combined image turn. History must already be
// limited to this session, oldest first, and include the current user
// message; image turns never replay history.
func (a *Assembler) Build(history []store.Message, turn Turn, mandatorySearch bool, searchCtx *searchctx.Context) []llm.Message {
	messages := []llm.Message{
		llm.Text("system", SystemPrompt),
		llm.Text("system", a.policyMessage()),
	}
	if mandatorySearch {
		messages = append(messages, llm.Text("system", MandatorySearchNotice))
	}
	if !searchCtx.Empty() {
		messages = append(messages, llm.Text("system", searchCtx.Block()))
	}

	if turn.ImageDataURI != "" {
		return append(messages, imageTurnMessage(turn))
	}

	window := history
	if a.HistoryWindow > 0 && len(window) > a.HistoryWindow {
		window = window[len(window)-a.HistoryWindow:]
	}
	for _, msg := range window {
		// pending assistant placeholders have no content yet
		if msg.Role == "assistant" && msg.Content == "" {
			continue
		}
		messages = append(messages, llm.Text(msg.Role, msg.Content))
	}
	return messages
}

// policyMessage dates the conversation and tells the model when to
// reach for the search tool.
func (a *Assembler) policyMessage() string {
	date := a.Now().UTC().Format("2006-01-02")
	cutoff := a.KnowledgeCutoff
	if cutoff == "" {
		cutoff = "unspecified"
	}
	return fmt.Sprintf(
		"Today's date is %s. Your knowledge cutoff is %s. "+
			"If the question is time-sensitive or may depend on information after the cutoff, "+
			"call the web search tool before answering.",
		date, cutoff,
	)
}

// imageTurnMessage combines the trimmed text parts and the image
// reference into a single structured user message.
func imageTurnMessage(turn Turn) llm.Message {
	var texts []string
	if text := strings.TrimSpace(turn.Text); text != "" {
		texts = append(texts, text)
	}
	if desc := strings.TrimSpace(turn.ImageDescription); desc != "" {
		texts = append(texts, "Image summary: "+desc)
	}

	var parts []llm.ContentPart
	if len(texts) > 0 {
		parts = append(parts, llm.TextPart(strings.Join(texts, "\n")))
	}
	parts = append(parts, llm.ImagePart(turn.ImageDataURI))

	return llm.Message{Role: "user", Content: parts}
}
