package syllabus

import "strings"

// Sanitize strips formatting noise from raw extraction text: fenced
// code-block delimiters, one layer of surrounding quotes, escaped quotes and
// outer whitespace. The transform is idempotent; running it again over its
// own output returns the same string.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	text = stripFences(text)
	text = stripQuoteLayer(text)
	return strings.TrimSpace(text)
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// The opening fence may carry a language tag, either alone on the fence
	// line or glued to the payload itself.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 && isFenceTag(strings.TrimSpace(text[:idx])) {
		text = text[idx+1:]
	}
	text = strings.TrimSpace(text)
	if tag := leadingFenceTag(text); tag != "" {
		text = strings.TrimSpace(strings.TrimPrefix(text, tag))
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func isFenceTag(line string) bool {
	if line == "" {
		return true
	}
	for _, r := range line {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func leadingFenceTag(text string) string {
	for _, tag := range []string{"json", "JSON"} {
		if strings.HasPrefix(text, tag+"{") || strings.HasPrefix(text, tag+" ") {
			return tag
		}
	}
	return ""
}

// stripQuoteLayer removes one layer of surrounding double quotes and
// un-escapes interior quotes. Only applied when the unwrapped content is an
// object body, which keeps repeated application a no-op.
func stripQuoteLayer(text string) string {
	if len(text) < 2 || text[0] != '"' || text[len(text)-1] != '"' {
		return text
	}
	inner := text[1 : len(text)-1]
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	if strings.HasPrefix(strings.TrimSpace(inner), "{") {
		return inner
	}
	return text
}
