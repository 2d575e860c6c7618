package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/osaurus-ai/osaurus/internal/wire"
)

// detectToolCall implements §4.F's inline tool-call detection: search a
// bounded tail window of the rolling buffer for a JSON object naming one
// of the active tools, extract it with a brace-matching scan, and parse
// it into (name, argumentsJSON). Only runs when the caller has already
// gated on "token contains '}'" and len(tools) > 0.
func detectToolCall(buf *RollingBuffer, tools []wire.ToolSpec) (name string, argsJSON string, ok bool) {
	if len(tools) == 0 {
		return "", "", false
	}
	window, _ := buf.Tail(ToolScanWindow)
	if window == "" {
		return "", "", false
	}

	// Search backwards: among all tool names, find the rightmost (nearest
	// the end of the window) "name" key match across all of them.
	bestIdx := -1
	bestEnd := -1
	for _, tool := range tools {
		re := nameKeyPattern(tool.Name)
		locs := re.FindAllStringIndex(window, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		if last[0] > bestIdx {
			bestIdx = last[0]
			bestEnd = last[1]
		}
	}
	if bestIdx < 0 {
		return "", "", false
	}

	open := findEnclosingBrace(window, bestIdx)
	if open < 0 {
		return "", "", false
	}
	closeIdx := findMatchingBrace(window, open)
	if closeIdx < 0 || closeIdx < bestEnd {
		return "", "", false
	}
	candidate := window[open : closeIdx+1]

	parsedName, parsedArgs, ok := parseToolCallCandidate(candidate)
	if !ok {
		return "", "", false
	}
	for _, tool := range tools {
		if tool.Name == parsedName {
			return parsedName, parsedArgs, true
		}
	}
	return "", "", false
}

func nameKeyPattern(toolName string) *regexp.Regexp {
	// "(tool_)?name"\s*:\s*"N"
	return regexp.MustCompile(`"(tool_)?name"\s*:\s*"` + regexp.QuoteMeta(toolName) + `"`)
}

// findEnclosingBrace walks backward from pos to find the nearest '{'.
func findEnclosingBrace(s string, pos int) int {
	for i := pos; i >= 0; i-- {
		if s[i] == '{' {
			return i
		}
	}
	return -1
}

// findMatchingBrace forward-scans from an opening '{' at `open` using a
// brace/string/escape state machine to find the index of the matching
// '}', or -1 if the buffer ends before it closes.
func findMatchingBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseToolCallCandidate accepts any of the shapes §4.F lists:
// {"function":{"name":N,"arguments":...}}, {"tool_name":N,"arguments":...},
// {"name":N,"arguments":...}. arguments may already be a JSON string or a
// nested object (re-serialized to a string).
func parseToolCallCandidate(candidate string) (name string, argsJSON string, ok bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return "", "", false
	}

	if fn, exists := raw["function"]; exists {
		var inner struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(fn, &inner); err != nil || inner.Name == "" {
			return "", "", false
		}
		return inner.Name, normalizeArguments(inner.Arguments), true
	}

	var toolName string
	if v, exists := raw["tool_name"]; exists {
		_ = json.Unmarshal(v, &toolName)
	} else if v, exists := raw["name"]; exists {
		_ = json.Unmarshal(v, &toolName)
	}
	if toolName == "" {
		return "", "", false
	}
	return toolName, normalizeArguments(raw["arguments"]), true
}

// normalizeArguments returns args as a JSON string: if it's already a
// JSON string literal it is unwrapped and re-used verbatim; otherwise
// (object/array/number/etc.) it is re-serialized to a string.
func normalizeArguments(args json.RawMessage) string {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" {
		return "{}"
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(args, &s); err == nil {
			return s
		}
	}
	return trimmed
}
