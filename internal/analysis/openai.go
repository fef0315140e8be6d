package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/sahayak-analytics/backend/internal/models"
)

// OpenAIProvider generates analyses with any OpenAI-compatible chat
// completions endpoint (OpenAI, LiteLLM, vLLM and similar gateways).
type OpenAIProvider struct {
	client fastshot.ClientHttpMethods
	model  string
}

// NewOpenAIProvider creates a provider against the given base URL.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}

	c := fastshot.NewClient(strings.TrimSuffix(baseURL, "/"))
	if apiKey != "" {
		c.Auth().BearerToken(apiKey)
	}

	client := c.Config().SetTimeout(2 * time.Minute).
		Config().SetFollowRedirects(true).
		Header().Add("Content-Type", "application/json").
		Build()

	return &OpenAIProvider{
		client: client,
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("openai:%s", p.model)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze sends the analysis prompt through /chat/completions.
func (p *OpenAIProvider) Analyze(ctx context.Context, rec models.StudentRecord) (*models.StudentAnalysis, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: BuildPrompt(rec)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := p.client.
		POST("/chat/completions").
		Context().Set(ctx).
		Header().Add("Accept", "application/json").
		Retry().SetExponentialBackoff(time.Second, 3, 2.0).
		Body().AsJSON(req).
		Send()
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, err := resp.Body().AsString()
		if err != nil {
			return nil, fmt.Errorf("failed to read error response: %w", err)
		}
		return nil, errors.New(msg)
	}

	var res chatResponse
	if err := resp.Body().AsJSON(&res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if res.Error != nil {
		return nil, fmt.Errorf("API error: %s", res.Error.Message)
	}
	if len(res.Choices) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	return DecodeAnalysis(res.Choices[0].Message.Content)
}
