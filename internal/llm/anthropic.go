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

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// AnthropicClient talks to the Messages API. Structured output is obtained by
// forcing a single tool call whose input schema is the requested schema.
type AnthropicClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewAnthropicClient(baseURL, apiKey, model string, hc *http.Client) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &AnthropicClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  hc,
	}
}

type anthropicTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type anthropicMessagesRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicTurn      `json:"messages"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicMessagesResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ChatComplete(ctx, []Message{{Role: "user", Content: prompt}})
}

func (c *AnthropicClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.send(ctx, c.request(messages))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in response (stop reason %q)", resp.StopReason)
	}
	return strings.TrimSpace(text.String()), nil
}

// CompleteJSON returns the input of a forced tool call shaped by schema.
func (c *AnthropicClient) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	name := schema.Name
	if name == "" {
		name = "structured_output"
	}

	req := c.request([]Message{{Role: "user", Content: prompt}})
	req.Tools = []anthropicTool{{
		Name:        name,
		Description: schema.Description,
		InputSchema: schema.Map(),
	}}
	req.ToolChoice = &anthropicToolChoice{Type: "tool", Name: name}

	resp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == name && len(block.Input) > 0 {
			return string(block.Input), nil
		}
	}
	return "", fmt.Errorf("no %s tool call in response (stop reason %q)", name, resp.StopReason)
}

// request splits system messages out of the conversation.
func (c *AnthropicClient) request(messages []Message) *anthropicMessagesRequest {
	req := &anthropicMessagesRequest{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
	}
	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, anthropicTurn{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

func (c *AnthropicClient) send(ctx context.Context, reqBody *anthropicMessagesRequest) (*anthropicMessagesResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messages request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result anthropicMessagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("messages request failed: %s", result.Error.Message)
	}
	return &result, nil
}
