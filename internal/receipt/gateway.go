package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrGatewayNotConfigured = errors.New("receipt gateway is not configured")
	ErrGateway              = errors.New("receipt gateway error")
)

const extractPrompt = "Extract all items with prices from this receipt. " +
	"Return ONLY a valid JSON array with objects containing: name (string), " +
	"price (number in IDR), quantity (number, default 1). " +
	"No markdown, no explanation, just the JSON array."

// Extractor sends a receipt image to a vision model and returns its raw text answer.
type Extractor interface {
	Extract(ctx context.Context, imageDataURL string) (string, error)
}

// GatewayClient talks to an OpenAI-compatible chat completions endpoint.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL (e.g.
// "https://ai.gateway.lovable.dev/v1").
func NewGatewayClient(baseURL, apiKey, model string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Extract asks the model for the receipt's items. The answer is returned as-is;
// callers run it through Sanitize. An empty answer becomes "[]".
func (c *GatewayClient) Extract(ctx context.Context, imageDataURL string) (string, error) {
	if c.apiKey == "" {
		return "", ErrGatewayNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extractPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: imageDataURL}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Receipt gateway rejected request", "status", resp.StatusCode, "model", c.model)
		return "", fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if content.Type != gjson.String || strings.TrimSpace(content.String()) == "" {
		return "[]", nil
	}
	return content.String(), nil
}
