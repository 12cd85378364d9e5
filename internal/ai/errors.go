package ai

import "strings"

// User-facing provider error messages. The raw error stays available as
// a detail side channel; these are what the user sees.
const (
	ErrMsgInvalidKey = "Invalid API key. Please check your Gemini API key."
	ErrMsgQuota      = "API quota exceeded. Please try again later."
	ErrMsgModel      = "Model not available. Please try again."
	ErrMsgGeneration = "Failed to generate response"
	ErrMsgKeyNotSet  = "Gemini API key is not configured"
)

// ClassifyError maps an upstream provider error onto a user-facing
// message by substring match on the error text.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key"):
		return ErrMsgInvalidKey
	case strings.Contains(msg, "quota"):
		return ErrMsgQuota
	case strings.Contains(msg, "model"):
		return ErrMsgModel
	default:
		return ErrMsgGeneration
	}
}
