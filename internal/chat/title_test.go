package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMsg(content string) Message {
	return Message{ID: 1, Role: RoleUser, Content: content, Timestamp: 1}
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
		want string
	}{
		{"no messages", nil, "New Chat"},
		{"only assistant", []Message{{Role: RoleAssistant, Content: "hello there"}}, "New Chat"},
		{"only blank user", []Message{userMsg("   ")}, "New Chat"},
		{"greeting collapses", []Message{userMsg("hello")}, "Hi"},
		{"greeting case insensitive", []Message{userMsg("  Good Morning  ")}, "Hi"},
		{"greeting inside sentence is not a greeting", []Message{userMsg("hello world today")}, "hello world today"},
		{"question kept through first question mark", []Message{userMsg("What is the capital of France? And Spain?")}, "What is the capital of France?"},
		{
			"long question truncated",
			[]Message{userMsg("Could you possibly explain to me how exactly garbage collection works?")},
			"Could you possibly explain to me how " + "...",
		},
		{"keyword lead takes five words", []Message{userMsg("explain the theory of general relativity to me")}, "explain the theory of general"},
		{"keyword lead case insensitive", []Message{userMsg("Build a birdhouse from scrap wood please")}, "Build a birdhouse from scrap"},
		{"fallback first five words", []Message{userMsg("the quick brown fox jumps over the lazy dog")}, "the quick brown fox jumps"},
		{"short text unchanged", []Message{userMsg("weather report")}, "weather report"},
		{
			"blank first user message skipped",
			[]Message{userMsg("  "), userMsg("hi")},
			"Hi",
		},
		{
			"file-only message titles as file name",
			[]Message{{Role: RoleUser, File: &FileRef{Name: "report.pdf", MIMEType: "application/pdf"}}},
			"report.pdf",
		},
		{
			"long file name truncated to twenty",
			[]Message{{Role: RoleUser, File: &FileRef{Name: "quarterly-financial-summary-2025.pdf"}}},
			"quarterly-financial-summary-2025.pdf"[:17] + "...",
		},
		{
			"question wins over attached file",
			[]Message{{Role: RoleUser, Content: "what is this?", File: &FileRef{Name: "scan.png"}}},
			"what is this?",
		},
		{
			"file wins over plain fallback",
			[]Message{{Role: RoleUser, Content: "the attached invoice", File: &FileRef{Name: "invoice.pdf"}}},
			"invoice.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateTitle(tt.msgs)
			assert.Equal(t, tt.want, got)
			// Deterministic and idempotent.
			assert.Equal(t, got, GenerateTitle(tt.msgs))
		})
	}
}

func TestGenerateTitle_QuestionBounds(t *testing.T) {
	long := strings.Repeat("why ", 30) + "?"
	title := GenerateTitle([]Message{userMsg(long)})
	assert.LessOrEqual(t, len([]rune(title)), 40)

	short := GenerateTitle([]Message{userMsg("What is the capital of France?")})
	require.True(t, strings.HasSuffix(short, "?"))
	assert.Equal(t, "What is the capital of France?", short)
}

func TestNextMessageID_Monotonic(t *testing.T) {
	a := NextMessageID(0)
	b := NextMessageID(a)
	c := NextMessageID(b)
	assert.Greater(t, b, a)
	assert.Greater(t, c, b)
}

func TestNewSessionID_Unique(t *testing.T) {
	a, err := NewSessionID()
	require.NoError(t, err)
	b, err := NewSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 26)
}
