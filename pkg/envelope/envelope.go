// Package envelope extracts tool calls that a model embeds in free-form text.
//
// A reply carries at most one call block:
//
//	Some prose the caller may show or ignore.
//	<function_call>
//	[{"name": "create_board_on_trello", "parameters": {"board_name": "Launch"}}]
//	</function_call>
//
// The block body is a JSON array of {name, parameters} objects. Order inside the
// array is the order calls are executed and results are reported.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Block markers.
const (
	StartMarker = "<function_call>"
	EndMarker   = "</function_call>"
)

// ErrMalformed is returned when a call block is present but does not decode.
var ErrMalformed = errors.New("malformed function call block")

var blockRegex = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(StartMarker) + `(.*?)` + regexp.QuoteMeta(EndMarker))

// ToolCall is one requested invocation.
type ToolCall struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// Envelope is the ordered list of calls found in one reply.
type Envelope []ToolCall

// Named returns the calls with the given name, preserving order.
func (e Envelope) Named(name string) Envelope {
	var out Envelope
	for _, call := range e {
		if call.Name == name {
			out = append(out, call)
		}
	}
	return out
}

// Names returns the call names in order.
func (e Envelope) Names() []string {
	names := make([]string, len(e))
	for i, call := range e {
		names[i] = call.Name
	}
	return names
}

// Extract returns the trimmed body of the first call block.
// A start marker without an end marker is treated as a stream cut short and closed before matching.
func Extract(text string) (string, bool) {
	if !strings.Contains(text, StartMarker) {
		return "", false
	}
	if !strings.Contains(text, EndMarker) {
		text += EndMarker
	}
	m := blockRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Parse decodes the call block of a reply.
// No block yields a nil Envelope and nil error. A block that is not a JSON array of
// calls yields an error wrapping ErrMalformed; nothing is partially decoded.
func Parse(text string) (Envelope, error) {
	body, ok := Extract(text)
	if !ok {
		return nil, nil
	}

	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	for i, call := range env {
		if call.Name == "" {
			return nil, fmt.Errorf("%w: call %d has no name", ErrMalformed, i)
		}
		if call.Parameters == nil {
			env[i].Parameters = map[string]any{}
		}
	}
	return env, nil
}

// ExtractTag returns the trimmed content of the first <tag>...</tag> block.
func ExtractTag(text, tag string) (string, bool) {
	open, closing := "<"+tag+">", "</"+tag+">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, closing)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// Strip removes the call block from text, leaving the surrounding prose.
func Strip(text string) string {
	if strings.Contains(text, StartMarker) && !strings.Contains(text, EndMarker) {
		return strings.TrimSpace(text[:strings.Index(text, StartMarker)])
	}
	return strings.TrimSpace(blockRegex.ReplaceAllString(text, ""))
}
