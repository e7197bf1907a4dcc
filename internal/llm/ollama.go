package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/tome/pkg/models"
)

// Ollama is a Generator backed by an Ollama-compatible /api/generate
// endpoint. The same client serves image description when a vision model
// is configured.
type Ollama struct {
	baseURL     string
	visionModel string
	client      *http.Client
}

var _ Generator = (*Ollama)(nil)

// OllamaConfig contains configuration for the Ollama client.
type OllamaConfig struct {
	// BaseURL is the server base URL, e.g. "http://localhost:11434".
	BaseURL string

	// VisionModel is the model used for image description. Empty disables
	// image description.
	VisionModel string

	// Timeout bounds non-streaming requests. Streaming generation uses no
	// client timeout; the request context governs it.
	Timeout time.Duration
}

// NewOllama creates a new Ollama client.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("llm base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Ollama{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		visionModel: cfg.VisionModel,
		client:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SupportsVision reports whether a vision model is configured.
func (o *Ollama) SupportsVision() bool {
	return o.visionModel != ""
}

// Stream starts a streaming generation and returns the raw response body.
// Each line of the body is a JSON object; incremental text arrives in the
// "response" field.
func (o *Ollama) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	payload := map[string]any{
		"model":  req.Model,
		"prompt": renderPrompt(req.Messages),
		"stream": true,
	}
	if req.System != "" {
		payload["system"] = req.System
	}

	resp, err := o.post(ctx, payload, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Describe sends an image to the vision model and returns its decoded
// response.
func (o *Ollama) Describe(ctx context.Context, data []byte, mimeType string) (any, error) {
	if o.visionModel == "" {
		return nil, fmt.Errorf("no vision model configured")
	}

	payload := map[string]any{
		"model":  o.visionModel,
		"prompt": "Describe this image in detail. Include any visible text.",
		"images": []string{base64.StdEncoding.EncodeToString(data)},
		"stream": false,
	}

	resp, err := o.post(ctx, payload, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if s, ok := parsed["response"].(string); ok {
		return s, nil
	}
	return parsed, nil
}

func (o *Ollama) post(ctx context.Context, payload map[string]any, streaming bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.client
	if streaming {
		// The stream runs as long as the model generates; only the
		// context may cancel it.
		client = &http.Client{Transport: o.client.Transport}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		resp.Body.Close()
		return nil, fmt.Errorf("generate request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp, nil
}

// renderPrompt flattens the conversation into a single prompt, the
// format completion-style models expect. The trailing "Assistant:" cue
// invites the model to continue as the assistant.
func renderPrompt(messages []models.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString("User: ")
		case models.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
