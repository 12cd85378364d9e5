package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider is a local-development collaborator speaking the Ollama
// chat API. Images ride along base64-encoded; plain-text files are
// inlined; everything else is passed by name only.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type ollamaChatReq struct {
	Model    string      `json:"model"`
	Messages []ollamaMsg `json:"messages"`
	Stream   bool        `json:"stream"`
}

type ollamaMsg struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Error   string    `json:"error,omitempty"`
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.Client == nil {
		return "", errors.New("ollama: http client is nil")
	}

	msg := ollamaMsg{Role: "user", Content: req.Text}
	if req.File != nil {
		mimeType := InferMIMEType(req.File.Name, req.File.MIMEType)
		if msg.Content == "" {
			msg.Content = defaultFilePrompt
		}
		switch {
		case strings.HasPrefix(mimeType, "image/"):
			msg.Images = append(msg.Images, base64.StdEncoding.EncodeToString(req.File.Data))
		case mimeType == "text/plain":
			msg.Content += fmt.Sprintf("\n\nFile content (%s):\n%s", req.File.Name, string(req.File.Data))
		default:
			msg.Content += fmt.Sprintf("\n\nFile attached: %s (%s)", req.File.Name, mimeType)
		}
	}

	reqBody := ollamaChatReq{
		Model:    p.Model,
		Stream:   false,
		Messages: []ollamaMsg{msg},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimRight(p.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var decoded ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	return decoded.Message.Content, nil
}
