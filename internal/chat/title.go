package chat

import "strings"

// DefaultTitle is used while a session has no titleable user message.
const DefaultTitle = "New Chat"

const (
	maxTitleLen    = 40
	maxFileNameLen = 20
	titleWords     = 5
)

var greetings = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"good night":     {},
}

var leadingKeywords = map[string]struct{}{
	"what": {}, "how": {}, "why": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "can": {}, "would": {}, "should": {},
	"will": {}, "explain": {}, "create": {}, "build": {}, "code": {},
}

// GenerateTitle derives a short display title from a message list. It is
// pure and deterministic: the first user message that is not blank (or
// that carries a file) decides the title.
func GenerateTitle(msgs []Message) string {
	for i := range msgs {
		m := &msgs[i]
		if m.Role != RoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" && m.File == nil {
			continue
		}

		if content != "" {
			if _, ok := greetings[strings.ToLower(content)]; ok {
				return "Hi"
			}
			if idx := strings.Index(content, "?"); idx >= 0 {
				return truncate(content[:idx+1], maxTitleLen)
			}
			fields := strings.Fields(content)
			if _, ok := leadingKeywords[strings.ToLower(fields[0])]; ok {
				return truncate(firstWords(fields, titleWords), maxTitleLen)
			}
		}

		if m.File != nil {
			return truncate(m.File.Name, maxFileNameLen)
		}

		return truncate(firstWords(strings.Fields(content), titleWords), maxTitleLen)
	}
	return DefaultTitle
}

func firstWords(fields []string, n int) string {
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
