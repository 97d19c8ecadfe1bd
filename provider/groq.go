package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultGroqBaseURL     = "https://api.groq.com/openai"
	defaultGroqModel       = "meta-llama/llama-4-scout-17b-16e-instruct"
	defaultGroqMaxTokens   = 300
	defaultGroqTemperature = 0.3
)

// GroqConfig holds configuration for the Groq provider.
type GroqConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// GroqProvider implements Provider using the Groq Chat Completions API,
// which speaks the OpenAI wire format.
type GroqProvider struct {
	config GroqConfig
}

// NewGroqProvider creates a new Groq provider with the given config.
func NewGroqProvider(cfg GroqConfig) *GroqProvider {
	if cfg.Model == "" {
		cfg.Model = defaultGroqModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGroqBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultGroqMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultGroqTemperature
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &GroqProvider{config: cfg}
}

func (p *GroqProvider) Name() string { return "groq" }

// groqRequest is the request body for the Chat Completions API.
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqResponse is the response from the Chat Completions API.
type groqResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
	Usage   groqUsage    `json:"usage"`
	Error   *groqError   `json:"error,omitempty"`
}

type groqChoice struct {
	Message      groqMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type groqUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type groqError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Chat sends a non-streaming completion request.
func (p *GroqProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	reqBody := &groqRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
		TopP:        1,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, groqMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("groq: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("groq: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("groq: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq: API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp groqResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("groq: unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("groq: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("groq: response contains no choices")
	}

	model := apiResp.Model
	if model == "" {
		model = p.config.Model
	}
	return &Response{
		Content: apiResp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
		},
	}, nil
}
