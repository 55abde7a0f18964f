package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomhub/axiom-gateway/internal/llm"
)

// fakeCompleter replays a scripted sequence of choices and records
// every message list it was handed.
type fakeCompleter struct {
	script     []*llm.Choice
	err        error
	configured bool
	calls      [][]llm.Message
	opts       []llm.CompleteOptions
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message, opts llm.CompleteOptions) (*llm.Choice, error) {
	f.calls = append(f.calls, append([]llm.Message(nil), messages...))
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	return f.script[idx], nil
}

func textChoice(text string) *llm.Choice {
	content, _ := json.Marshal(text)
	return &llm.Choice{
		Message:      llm.AssistantMessage{Role: "assistant", Content: content},
		FinishReason: "stop",
	}
}

func toolChoice(id, name, args string) *llm.Choice {
	return &llm.Choice{
		Message: llm.AssistantMessage{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:       id,
				Type:     "function",
				Function: llm.ToolCallFunction{Name: name, Arguments: args},
			}},
		},
		FinishReason: "tool_calls",
	}
}

func newTestLoop(f *fakeCompleter) *Loop {
	return NewLoop(f, slog.Default())
}

func TestRunReturnsTextImmediately(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{textChoice("answer")}}
	text, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, false, "")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Len(t, f.calls, 1)
}

func TestRunNotConfigured(t *testing.T) {
	f := &fakeCompleter{configured: false}
	text, err := newTestLoop(f).Run(context.Background(), nil, false, "")
	require.NoError(t, err)
	assert.Equal(t, llm.NotConfiguredReply, text)
	assert.Empty(t, f.calls)
}

func TestRunEchoesWebSearchArguments(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", llm.WebSearchTool, `{"query":"go release"}`),
		textChoice("done"),
	}}
	text, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	require.Len(t, f.calls, 2)

	second := f.calls[1]
	// user turn, assistant tool-call echo, tool result
	require.Len(t, second, 3)
	assert.Equal(t, "assistant", second[1].Role)
	require.Len(t, second[1].ToolCalls, 1)

	tool := second[2]
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)
	assert.Equal(t, llm.WebSearchTool, tool.Name)
	assert.JSONEq(t, `{"query":"go release"}`, tool.Content.(string))
}

func TestRunMalformedArgumentsFallBackToRaw(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", llm.WebSearchTool, `not json at all`),
		textChoice("done"),
	}}
	_, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)
	require.Len(t, f.calls, 2)

	tool := f.calls[1][2]
	assert.JSONEq(t, `{"raw":"not json at all"}`, tool.Content.(string))
}

func TestRunFencedArgumentsAreDecoded(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", llm.WebSearchTool, "```json\n{\"query\":\"x\"}\n```"),
		textChoice("done"),
	}}
	_, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)
	tool := f.calls[1][2]
	assert.JSONEq(t, `{"query":"x"}`, tool.Content.(string))
}

func TestRunUnsupportedTool(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", "get_weather", `{"city":"oslo"}`),
		textChoice("done"),
	}}
	_, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)

	tool := f.calls[1][2]
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(tool.Content.(string)), &result))
	assert.Equal(t, "unsupported_tool", result["status"])
	assert.Equal(t, "get_weather", result["name"])
}

func TestRunFallbackAfterStepBudget(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", llm.WebSearchTool, `{}`),
	}}
	text, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, text)
	assert.Len(t, f.calls, maxSteps)
}

func TestRunTextWinsOverToolCalls(t *testing.T) {
	choice := toolChoice("call_1", llm.WebSearchTool, `{}`)
	choice.Message.Content = json.RawMessage(`"partial answer"`)
	f := &fakeCompleter{configured: true, script: []*llm.Choice{choice}}

	text, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "")
	require.NoError(t, err)
	assert.Equal(t, "partial answer", text)
	assert.Len(t, f.calls, 1)
}

func TestRunEmptyStopBreaksToFallback(t *testing.T) {
	choice := &llm.Choice{
		Message:      llm.AssistantMessage{Role: "assistant", Content: json.RawMessage(`""`)},
		FinishReason: "stop",
	}
	f := &fakeCompleter{configured: true, script: []*llm.Choice{choice}}

	text, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, false, "")
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, text)
	assert.Len(t, f.calls, 1)
}

func TestRunPropagatesErrors(t *testing.T) {
	f := &fakeCompleter{configured: true, err: errors.New("provider down")}
	_, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, false, "")
	require.Error(t, err)
	assert.Len(t, f.calls, 1)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", llm.WebSearchTool, `{}`),
		textChoice("done"),
	}}
	input := make([]llm.Message, 0, 8)
	input = append(input, llm.Text("user", "q"))

	_, err := newTestLoop(f).Run(context.Background(), input, true, "")
	require.NoError(t, err)
	assert.Len(t, input, 1)
}

func TestRunPassesOptions(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{textChoice("ok")}}
	_, err := newTestLoop(f).Run(context.Background(), []llm.Message{llm.Text("user", "q")}, true, "search-model")
	require.NoError(t, err)
	require.Len(t, f.opts, 1)
	assert.True(t, f.opts[0].EnableWebSearch)
	assert.Equal(t, "search-model", f.opts[0].Model)
}

func TestRegisterOverridesHandler(t *testing.T) {
	f := &fakeCompleter{configured: true, script: []*llm.Choice{
		toolChoice("call_1", "custom", `{"a":1}`),
		textChoice("done"),
	}}
	loop := newTestLoop(f)
	loop.Register("custom", func(name string, args any) any {
		return map[string]any{"handled": name}
	})

	_, err := loop.Run(context.Background(), []llm.Message{llm.Text("user", "q")}, false, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"handled":"custom"}`, f.calls[1][2].Content.(string))
}
