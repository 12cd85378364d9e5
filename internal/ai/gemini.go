package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider calls the Google Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	var contents []*genai.Content
	if req.File != nil {
		contents = []*genai.Content{
			genai.NewContentFromParts(buildFileParts(req), genai.RoleUser),
		}
	} else {
		contents = genai.Text(req.Text)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// buildFileParts assembles the prompt parts for a request carrying a
// file: images and PDFs are inlined as data, plain text is inlined as
// text, anything else is passed by name and type only.
func buildFileParts(req Request) []*genai.Part {
	f := req.File
	mimeType := InferMIMEType(f.Name, f.MIMEType)

	parts := make([]*genai.Part, 0, 2)
	if req.Text != "" {
		parts = append(parts, genai.NewPartFromText(req.Text))
	} else {
		parts = append(parts, genai.NewPartFromText(defaultFilePrompt))
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"), mimeType == "application/pdf":
		parts = append(parts, genai.NewPartFromBytes(f.Data, mimeType))
	case mimeType == "text/plain":
		parts = append(parts, genai.NewPartFromText(
			fmt.Sprintf("\n\nFile content (%s):\n%s", f.Name, string(f.Data))))
	default:
		parts = append(parts, genai.NewPartFromText(
			fmt.Sprintf("\n\nFile attached: %s (%s)", f.Name, mimeType)))
	}
	return parts
}
