package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGoogleModel   = "models/embedding-001"
	// embedding-001 produces 768-dimensional vectors.
	googleDimensions = 768
)

// GoogleConfig holds configuration for the Google embedder.
type GoogleConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GoogleEmbedder implements Embedder using the Generative Language
// embedContent API.
type GoogleEmbedder struct {
	config GoogleConfig
}

// NewGoogleEmbedder creates a Google embedder with the given config.
func NewGoogleEmbedder(cfg GoogleConfig) (*GoogleEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google embedder: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultGoogleModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGoogleBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &GoogleEmbedder{config: cfg}, nil
}

// Dimensions returns the embedding width.
func (g *GoogleEmbedder) Dimensions() int { return googleDimensions }

type googleEmbedRequest struct {
	Model   string        `json:"model"`
	Content googleContent `json:"content"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Embed requests an embedding for text.
func (g *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := googleEmbedRequest{
		Model:   g.config.Model,
		Content: googleContent{Parts: []googlePart{{Text: text}}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("google embedder: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:embedContent?key=%s", g.config.BaseURL, g.config.Model, g.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("google embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google embedder: send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google embedder: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google embedder: API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp googleEmbedResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("google embedder: unmarshal response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("google embedder: %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}
	if len(apiResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("google embedder: response contains no embedding")
	}
	return apiResp.Embedding.Values, nil
}
