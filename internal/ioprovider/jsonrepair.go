package ioprovider

import (
	"encoding/json"
	"strings"
)

// parseResponse extracts a JSON document from raw model output. The
// happy path is a clean parse; otherwise markdown fences are
// stripped and truncated documents are repaired before giving up.
func parseResponse(raw string, v any) error {
	text := strings.TrimSpace(raw)
	text = stripFences(text)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	repaired := repairTruncated(text)
	if err := json.Unmarshal([]byte(repaired), v); err == nil {
		return nil
	}

	// Arrays cut off mid-element can still yield their complete
	// leading objects.
	if strings.HasPrefix(text, "[") {
		if objs := completeObjects(text); objs != "" {
			if err := json.Unmarshal([]byte(objs), v); err == nil {
				return nil
			}
		}
	}

	return json.Unmarshal([]byte(text), v)
}

// stripFences removes a markdown code fence wrapper if present.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// repairTruncated closes a JSON document that was cut off
// mid-stream. It tracks bracket depth and string state, truncates at
// the last structural boundary, and appends the missing closers.
func repairTruncated(text string) string {
	var stack []byte
	inString := false
	escaped := false
	lastComplete := -1

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if len(stack) <= 1 {
				lastComplete = i
			}
		}
	}

	if len(stack) == 0 && !inString {
		return text
	}

	// Drop the partial trailing element when a safe cut exists.
	if lastComplete > 0 {
		text = text[:lastComplete+1]
		stack = rescanStack(text)
		inString = false
	} else if inString {
		text += "\""
	}

	var b strings.Builder
	b.WriteString(text)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

func rescanStack(text string) []byte {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			stack = append(stack, ch)
		case ch == '}' || ch == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// completeObjects returns a JSON array built from the complete
// top-level objects found in a possibly truncated array literal.
func completeObjects(text string) string {
	var objs []string
	depth := 0
	inString := false
	escaped := false
	start := -1

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case ch == '}':
			depth--
			if depth == 0 && start >= 0 {
				objs = append(objs, text[start:i+1])
				start = -1
			}
		}
	}

	if len(objs) == 0 {
		return ""
	}
	return "[" + strings.Join(objs, ",") + "]"
}
