package analysis

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/sahayak-analytics/backend/internal/models"
)

// GeminiProvider generates analyses with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return fmt.Sprintf("gemini:%s", p.model)
}

// Analyze sends the analysis prompt and decodes the structured reply.
// Rate-limit and transient errors are retried with exponential backoff.
func (p *GeminiProvider) Analyze(ctx context.Context, rec models.StudentRecord) (*models.StudentAnalysis, error) {
	prompt := BuildPrompt(rec)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
		if err != nil {
			lastErr = fmt.Errorf("gemini request failed: %w", err)
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = fmt.Errorf("gemini returned an empty reply")
			continue
		}

		analysis, err := DecodeAnalysis(text)
		if err != nil {
			lastErr = err
			continue
		}
		return analysis, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
