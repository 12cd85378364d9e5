// Package ai abstracts the generative-AI collaborator: text plus an
// optional file in, text out. Providers are registered by name and
// selected through configuration.
package ai

import "context"

// File is an attachment forwarded to the collaborator.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is one generation call. Text may be empty for a file-only
// message; providers substitute a fixed analysis prompt in that case.
type Request struct {
	Text string
	File *File
}

// Provider performs a single request/response generation. No streaming:
// incremental delivery is simulated by the caller.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// defaultFilePrompt accompanies a file sent without any text.
const defaultFilePrompt = "Please analyze this file and tell me what it contains."
