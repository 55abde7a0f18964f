package agent

import (
	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/searchctx"
)

// Handler produces the tool-result object for one tool call. The
// returned value is JSON-serialized into the tool message content.
type Handler func(name string, args any) any

// WebSearchHandler answers the provider's builtin search tool. The
// provider executes the search itself server-side; the contract is to
// echo the arguments back as the tool result.
func WebSearchHandler(name string, args any) any {
	return args
}

// UnsupportedToolHandler is the default for tool names with no
// registered handler. It reports the tool as unsupported instead of
// failing the request.
func UnsupportedToolHandler(name string, args any) any {
	return map[string]any{
		"status":    "unsupported_tool",
		"name":      name,
		"arguments": args,
	}
}

// decodeArguments parses raw tool-call arguments. Malformed payloads
// never abort the turn: the fallback chain tries fenced-block and
// brace-span extraction before giving up with a raw-string object.
func decodeArguments(raw string) any {
	if value, ok := searchctx.ExtractJSON(raw); ok {
		return value
	}
	return map[string]any{"raw": raw}
}

// register installs the builtin handlers.
func (l *Loop) register() {
	l.handlers = map[string]Handler{
		llm.WebSearchTool: WebSearchHandler,
	}
}

// Register installs a handler for a tool name, replacing any existing
// one. This is the seam that isolates provider tool-contract churn.
func (l *Loop) Register(name string, handler Handler) {
	l.handlers[name] = handler
}

func (l *Loop) handlerFor(name string) Handler {
	if handler, ok := l.handlers[name]; ok {
		return handler
	}
	return UnsupportedToolHandler
}
