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

// OpenAIClient speaks the OpenAI chat completions API. Groq serves the same
// API and is handled by this client too.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	// jsonObject selects response_format json_object with the schema in the
	// prompt, for servers without strict json_schema support.
	jsonObject bool
}

func NewOpenAIClient(baseURL, apiKey, model string, hc *http.Client) *OpenAIClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  hc,
	}
}

// NewGroqClient returns an OpenAIClient for Groq. Most Groq models reject
// strict json_schema, so CompleteJSON uses JSON object mode.
func NewGroqClient(baseURL, apiKey, model string, hc *http.Client) *OpenAIClient {
	c := NewOpenAIClient(baseURL, apiKey, model, hc)
	c.jsonObject = true
	return c
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ChatComplete(ctx, []Message{{Role: "user", Content: prompt}})
}

func (c *OpenAIClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	return c.chat(ctx, messages, nil)
}

// CompleteJSON asks for a reply constrained to schema via response_format.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if c.jsonObject {
		raw, err := json.Marshal(schema.Map())
		if err != nil {
			return "", fmt.Errorf("failed to marshal schema: %w", err)
		}
		prompt += "\n\nRespond with a single JSON object matching this JSON schema:\n" + string(raw)
		return c.chat(ctx, []Message{{Role: "user", Content: prompt}}, &openAIFormat{Type: "json_object"})
	}

	name := schema.Name
	if name == "" {
		name = "response"
	}
	format := &openAIFormat{
		Type: "json_schema",
		JSONSchema: &openAIJSONSchema{
			Name:   name,
			Schema: schema.Map(),
			Strict: true,
		},
	}
	return c.chat(ctx, []Message{{Role: "user", Content: prompt}}, format)
}

func (c *OpenAIClient) chat(ctx context.Context, messages []Message, format *openAIFormat) (string, error) {
	openAIMessages := make([]openAIMessage, len(messages))
	for i, m := range messages {
		openAIMessages[i] = openAIMessage(m)
	}

	reqBody := openAIChatRequest{
		Model:          c.model,
		Messages:       openAIMessages,
		Temperature:    0,
		ResponseFormat: format,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result openAIChatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, string(body))
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
