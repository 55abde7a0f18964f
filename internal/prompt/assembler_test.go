package prompt

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/searchctx"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

func testAssembler() *Assembler {
	a := NewAssembler("2025-01", 8)
	a.Now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return a
}

func userMsg(content string) store.Message {
	return store.Message{Role: "user", Content: content}
}

func assistantMsg(content string) store.Message {
	return store.Message{Role: "assistant", Content: content}
}

func TestBuildPreambleOrder(t *testing.T) {
	a := testAssembler()
	messages := a.Build([]store.Message{userMsg("question")}, Turn{Text: "question"}, false, nil)

	require.Len(t, messages, 3)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, SystemPrompt, messages[0].Content)
	assert.Equal(t, "system", messages[1].Role)
	assert.Contains(t, messages[1].Content.(string), "Today's date is 2026-08-30")
	assert.Contains(t, messages[1].Content.(string), "2025-01")
	assert.Equal(t, "user", messages[2].Role)
}

func TestBuildMandatorySearchNotice(t *testing.T) {
	a := testAssembler()
	messages := a.Build([]store.Message{userMsg("latest news")}, Turn{Text: "latest news"}, true, nil)

	require.Len(t, messages, 4)
	assert.Equal(t, MandatorySearchNotice, messages[2].Content)

	without := a.Build([]store.Message{userMsg("latest news")}, Turn{Text: "latest news"}, false, nil)
	for _, msg := range without {
		assert.NotEqual(t, MandatorySearchNotice, msg.Content)
	}
}

func TestBuildSearchContextBlock(t *testing.T) {
	a := testAssembler()
	ctx := &searchctx.Context{Results: []searchctx.Result{{Title: "A", URL: "https://a.example"}}}
	messages := a.Build([]store.Message{userMsg("q")}, Turn{Text: "q"}, false, ctx)

	require.Len(t, messages, 4)
	assert.Contains(t, messages[2].Content.(string), "Web search context:")
}

func TestBuildHistoryWindow(t *testing.T) {
	a := testAssembler()
	var history []store.Message
	for i := 0; i < 6; i++ {
		history = append(history, userMsg(fmt.Sprintf("q%d", i)), assistantMsg(fmt.Sprintf("a%d", i)))
	}

	messages := a.Build(history, Turn{Text: "q5"}, false, nil)
	// 2 preamble + last 8 of 12
	require.Len(t, messages, 10)
	assert.Equal(t, "q2", messages[2].Content)
	assert.Equal(t, "a5", messages[9].Content)
}

func TestBuildSkipsPendingAssistantRows(t *testing.T) {
	a := testAssembler()
	history := []store.Message{userMsg("q1"), assistantMsg(""), userMsg("q2")}
	messages := a.Build(history, Turn{Text: "q2"}, false, nil)

	require.Len(t, messages, 4)
	assert.Equal(t, "q1", messages[2].Content)
	assert.Equal(t, "q2", messages[3].Content)
}

func TestBuildImageTurnSkipsHistory(t *testing.T) {
	a := testAssembler()
	history := []store.Message{userMsg("old question"), assistantMsg("old answer")}
	turn := Turn{
		Text:             "what is this",
		ImageDataURI:     "data:image/jpeg;base64,AAAA",
		ImageDescription: "a red bridge",
	}
	messages := a.Build(history, turn, false, nil)

	require.Len(t, messages, 3)
	last := messages[2]
	assert.Equal(t, "user", last.Role)

	parts, ok := last.Content.([]llm.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Contains(t, parts[0].Text, "what is this")
	assert.Contains(t, parts[0].Text, "Image summary: a red bridge")
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[1].ImageURL.URL)
}

func TestBuildImageTurnWithoutText(t *testing.T) {
	a := testAssembler()
	messages := a.Build(nil, Turn{ImageDataURI: "data:image/jpeg;base64,AAAA"}, false, nil)

	parts := messages[len(messages)-1].Content.([]llm.ContentPart)
	require.Len(t, parts, 1)
	assert.Equal(t, "image_url", parts[0].Type)
}
