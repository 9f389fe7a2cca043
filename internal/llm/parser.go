package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError is raised when a model reply cannot be repaired into JSON
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse model response: %q", e.Snippet)
}

var (
	fenceRegex         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	singleQuoteRegex   = regexp.MustCompile(`'([^'\\]*)'\s*:`)
	singleQuoteValRegex = regexp.MustCompile(`:\s*'([^'\\]*)'`)
)

// Repair recovers a JSON object from free-form model output. Repairs are
// applied in order, reparsing after each: strip a fenced code block, extract
// the first balanced {...} span, remove trailing commas, normalize
// single-quoted keys and string values. Exhausting all steps returns a
// ParseError carrying the head of the offending text.
func Repair(text string) (map[string]interface{}, error) {
	candidate := strings.TrimSpace(text)
	if obj, ok := tryParse(candidate); ok {
		return obj, nil
	}

	if m := fenceRegex.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
		if obj, ok := tryParse(candidate); ok {
			return obj, nil
		}
	}

	if span := extractObject(candidate); span != "" {
		candidate = span
		if obj, ok := tryParse(candidate); ok {
			return obj, nil
		}
	}

	candidate = trailingCommaRegex.ReplaceAllString(candidate, "$1")
	if obj, ok := tryParse(candidate); ok {
		return obj, nil
	}

	candidate = singleQuoteRegex.ReplaceAllString(candidate, `"$1":`)
	candidate = singleQuoteValRegex.ReplaceAllString(candidate, `: "$1"`)
	if obj, ok := tryParse(candidate); ok {
		return obj, nil
	}

	snippet := text
	if len(snippet) > 150 {
		snippet = snippet[:150]
	}
	return nil, &ParseError{Snippet: snippet}
}

func tryParse(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// extractObject returns the first balanced {...} span, tracking string
// literals so braces inside strings do not break the match.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
				return s[start : i+1]
			}
		}
	}
	return ""
}
