package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// RemoteProvider talks to an rgsai gateway instead of a model API
// directly: multipart when a file is attached, JSON otherwise.
type RemoteProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteProvider(baseURL string) *RemoteProvider {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &RemoteProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type remoteChatResp struct {
	Response      string `json:"response"`
	FileProcessed bool   `json:"fileProcessed"`
	Error         string `json:"error,omitempty"`
	Details       string `json:"details,omitempty"`
}

func (p *RemoteProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.Client == nil {
		return "", errors.New("remote: http client is nil")
	}

	httpReq, err := p.buildRequest(ctx, req)
	if err != nil {
		return "", err
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}

	var decoded remoteChatResp
	if err := json.Unmarshal(body, &decoded); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("remote: status %d", resp.StatusCode)
		}
		return "", err
	}

	if decoded.Error != "" {
		if decoded.Details != "" {
			return "", fmt.Errorf("%s: %s", decoded.Error, decoded.Details)
		}
		return "", errors.New(decoded.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("remote: status %d", resp.StatusCode)
	}
	return decoded.Response, nil
}

func (p *RemoteProvider) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := strings.TrimRight(p.BaseURL, "/") + "/api/chat"

	if req.File == nil {
		payload := map[string]any{
			"messages": []map[string]string{
				{"role": "user", "content": req.Text},
			},
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("message", req.Text); err != nil {
		return nil, err
	}
	fw, err := w.CreateFormFile("file", req.File.Name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(req.File.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	return httpReq, nil
}
