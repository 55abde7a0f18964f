// Package searchctx normalizes search-provider payloads into one
// canonical shape. Provider result formats have churned repeatedly
// (plain numbered lists, JSON arrays, JSON wrapped in markdown
// fences), so parsing runs an exhaustive fallback chain with an
// explicit no-result terminal case.
package searchctx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Fetched is the retrieved content of one result URL.
type Fetched struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Context is the canonical shape any search integration converges to.
type Context struct {
	Results []Result  `json:"results"`
	Fetched []Fetched `json:"fetched,omitempty"`
}

// Empty reports whether the context carries no usable evidence.
func (c *Context) Empty() bool {
	return c == nil || (len(c.Results) == 0 && len(c.Fetched) == 0)
}

// Block renders the context as the system-message evidence block fed
// to the model. At most six results are included.
func (c *Context) Block() string {
	if c.Empty() {
		return ""
	}
	lines := []string{"Web search context:"}
	results := c.Results
	if len(results) > 6 {
		results = results[:6]
	}
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.URL))
		if r.Snippet != "" {
			lines = append(lines, "  snippet: "+r.Snippet)
		}
	}
	if len(c.Fetched) > 0 {
		lines = append(lines, "Fetched content excerpts:")
		for _, f := range c.Fetched {
			lines = append(lines, fmt.Sprintf("- %s: %s", f.URL, f.Content))
		}
	}
	return strings.Join(lines, "\n")
}

// Parse extracts a search context from a raw provider payload.
// Fallback order: numbered-list text, direct JSON, fenced-block JSON,
// brace-span JSON. Returns nil when nothing usable is found.
func Parse(raw string) *Context {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ctx := parseNumberedList(raw); !ctx.Empty() {
		return ctx
	}
	if value, ok := ExtractJSON(raw); ok {
		if ctx := fromValue(value); !ctx.Empty() {
			return ctx
		}
	}
	return nil
}

// ExtractJSON decodes raw as JSON, trying the payload verbatim, then
// the contents of a ```-fenced block, then the widest {...} or [...]
// span. The second return is false when nothing decodes.
func ExtractJSON(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value, true
	}
	if fenced := fencedBlock(raw); fenced != "" {
		if err := json.Unmarshal([]byte(fenced), &value); err == nil {
			return value, true
		}
	}
	if span := braceSpan(raw); span != "" {
		if err := json.Unmarshal([]byte(span), &value); err == nil {
			return value, true
		}
	}
	return nil, false
}

// fencedBlock returns the body of the first ``` fence, if any.
func fencedBlock(raw string) string {
	start := strings.Index(raw, "```")
	if start == -1 {
		return ""
	}
	rest := raw[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// drop the language tag line
		if lang := strings.TrimSpace(rest[:nl]); lang == "" || !strings.ContainsAny(lang, " \t{[") {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// braceSpan returns the widest {...} or [...] span in raw.
func braceSpan(raw string) string {
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(raw, pair[0])
		end := strings.LastIndexByte(raw, pair[1])
		if start != -1 && end > start {
			return raw[start : end+1]
		}
	}
	return ""
}

// parseNumberedList handles the plain-text provider format:
//
//  1. Some title
//     URL: https://example.com
//     Summary: some snippet
func parseNumberedList(raw string) *Context {
	ctx := &Context{}
	var current Result
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lowered := strings.ToLower(line)
		switch {
		case line[0] >= '0' && line[0] <= '9' && strings.Contains(line, ". "):
			if current.URL != "" {
				ctx.Results = append(ctx.Results, current)
			}
			_, title, _ := strings.Cut(line, ". ")
			current = Result{Title: strings.TrimSpace(title)}
		case strings.HasPrefix(lowered, "url:"):
			current.URL = strings.TrimSpace(line[len("url:"):])
		case strings.HasPrefix(lowered, "summary:"):
			current.Snippet = strings.TrimSpace(line[len("summary:"):])
		}
	}
	if current.URL != "" {
		ctx.Results = append(ctx.Results, current)
	}
	return ctx
}

// fromValue converts a decoded JSON payload into a context. It accepts
// a bare result list, a {"results": [...], "fetched": [...]} object,
// or an object with the list nested under "content".
func fromValue(value any) *Context {
	switch v := value.(type) {
	case []any:
		return &Context{Results: resultList(v)}
	case map[string]any:
		ctx := &Context{}
		if results, ok := v["results"].([]any); ok {
			ctx.Results = resultList(results)
		}
		if fetched, ok := v["fetched"].([]any); ok {
			for _, item := range fetched {
				entry, ok := item.(map[string]any)
				if !ok {
					continue
				}
				url := stringField(entry, "url")
				if url == "" {
					continue
				}
				ctx.Fetched = append(ctx.Fetched, Fetched{
					URL:     url,
					Content: stringField(entry, "content"),
				})
			}
		}
		if ctx.Empty() {
			if content, ok := v["content"].([]any); ok {
				ctx.Results = resultList(content)
			}
		}
		return ctx
	}
	return &Context{}
}

// resultList keeps entries with a URL; title and snippet field names
// vary by provider.
func resultList(items []any) []Result {
	var results []Result
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		url := firstOf(entry, "url", "link")
		if url == "" {
			continue
		}
		title := firstOf(entry, "title", "heading")
		if title == "" {
			title = url
		}
		results = append(results, Result{
			Title:   title,
			URL:     url,
			Snippet: firstOf(entry, "snippet", "body"),
		})
	}
	return results
}

func firstOf(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := stringField(entry, key); value != "" {
			return value
		}
	}
	return ""
}

func stringField(entry map[string]any, key string) string {
	value, ok := entry[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
