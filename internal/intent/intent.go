// Package intent classifies normalized user queries so trivial inputs
// never pay for a model round trip and fact-risk-prone inputs are
// forced through web search.
package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Outcome is the classification result for one user turn.
type Outcome int

const (
	Normal Outcome = iota
	Smalltalk
	StaticReply
	MandatorySearch
)

const (
	IdentityReply = "I'm Axiom, an AI research assistant. " +
		"I don't disclose underlying model or provider details. " +
		"If you have a task, I'm ready to help."
	SeahorseReply = "Here’s a seahorse image:\n\n![Seahorse](/static/chat/seahorse.svg)"
)

var smalltalk = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"yo":    true,
	"sup":   true,
	"hola":  true,
}

var identityProbes = map[string]bool{
	"what model are you":         true,
	"which model are you":        true,
	"what model are you running": true,
	"what model do you use":      true,
	"who built you":              true,
	"who made you":               true,
	"who created you":            true,
	"who are you":                true,
	"are you openai":             true,
}

var searchKeywords = map[string]bool{
	"latest":     true,
	"current":    true,
	"today":      true,
	"now":        true,
	"recent":     true,
	"released":   true,
	"release":    true,
	"version":    true,
	"changelog":  true,
	"price":      true,
	"pricing":    true,
	"ceo":        true,
	"president":  true,
	"law":        true,
	"regulation": true,
	"news":       true,
	"update":     true,
}

var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(what|which)\b.*\b(version|release)\b`),
	regexp.MustCompile(`\b(latest|current|newest)\b`),
	regexp.MustCompile(`\b(19|20)\d{2}\b`),
}

// Normalize replaces every non-alphanumeric character with a space,
// collapses whitespace runs, and lowercases. Alphanumeric is
// Unicode-wide, so accented letters survive. Idempotent.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return ' '
	}, lowered)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Classify decides how a turn should be handled. The input must
// already be normalized. Image-bearing turns always go through the
// model, so every short-circuit requires hasImage to be false.
// For StaticReply the canned reply text is returned alongside.
func Classify(normalized string, hasImage bool) (Outcome, string) {
	if hasImage {
		return Normal, ""
	}
	if smalltalk[normalized] || utf8.RuneCountInString(normalized) <= 2 {
		return Smalltalk, ""
	}
	if reply := staticReplyFor(normalized); reply != "" {
		return StaticReply, reply
	}
	if needsSearch(normalized) {
		return MandatorySearch, ""
	}
	return Normal, ""
}

func staticReplyFor(normalized string) string {
	if identityProbes[normalized] ||
		strings.HasPrefix(normalized, "what model") ||
		strings.HasPrefix(normalized, "who built") {
		return IdentityReply
	}
	if strings.Contains(normalized, "seahorse") &&
		(strings.Contains(normalized, "show") ||
			strings.Contains(normalized, "image") ||
			strings.Contains(normalized, "picture")) {
		return SeahorseReply
	}
	return ""
}

func needsSearch(normalized string) bool {
	for _, token := range strings.Fields(normalized) {
		if searchKeywords[token] {
			return true
		}
	}
	for _, pattern := range searchPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}
