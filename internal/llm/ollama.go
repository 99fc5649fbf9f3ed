package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaClient(baseURL, model string, hc *http.Client) *OllamaClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  hc,
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  map[string]any `json:"format,omitempty"`
	Options ollamaOptions  `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, ollamaGenerateRequest{Model: c.model, Prompt: prompt})
}

// CompleteJSON passes schema as the structured output format.
func (c *OllamaClient) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	return c.generate(ctx, ollamaGenerateRequest{Model: c.model, Prompt: prompt, Format: schema.Map()})
}

func (c *OllamaClient) generate(ctx context.Context, reqBody ollamaGenerateRequest) (string, error) {
	var result ollamaGenerateResponse
	if err := c.post(ctx, "/api/generate", reqBody, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Response), nil
}

func (c *OllamaClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	ollamaMessages := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		ollamaMessages[i] = ollamaMessage(m)
	}

	var result ollamaChatResponse
	if err := c.post(ctx, "/api/chat", ollamaChatRequest{Model: c.model, Messages: ollamaMessages}, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Message.Content), nil
}

func (c *OllamaClient) post(ctx context.Context, path string, reqBody, out any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
