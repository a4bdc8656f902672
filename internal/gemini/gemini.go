// Package gemini wraps the Gemini API for image analysis and text completion.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/Skufu/radiolens/internal/logging"
)

var logger = logging.Logger(logging.SourceAI)

var (
	ErrAPIKeyRequired = errors.New("gemini API key is required")
	ErrEmptyResponse  = errors.New("gemini returned an empty response")
)

// Default model names.
const (
	DefaultModel      = "gemini-2.5-flash"
	DefaultAgentModel = "gemini-2.5-flash"
)

// Config holds the Gemini client configuration.
type Config struct {
	APIKey     string
	Model      string
	AgentModel string
}

// Client sends prompts to Gemini.
type Client struct {
	client     *genai.Client
	model      string
	agentModel string
}

// New creates a Gemini API client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.AgentModel == "" {
		cfg.AgentModel = DefaultAgentModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: cfg.Model, agentModel: cfg.AgentModel}, nil
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return out
}

// imageConfig keeps the analysis reasonably consistent while leaving room for detailed replies.
func imageConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 2048,
		SafetySettings:  safetySettings(),
	}
}

// AnalyzeImage sends the image as an inline blob followed by the prompt and returns the reply text.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  string(genai.RoleUser),
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
				{Text: prompt},
			},
		},
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, imageConfig())
	if err != nil {
		return "", fmt.Errorf("Gemini GenerateContent failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	logger.Info("image analysed", "model", c.model, "bytes", len(image), "reply_chars", len(text), "duration_ms", time.Since(start).Milliseconds())

	return text, nil
}

// Complete runs a text-only prompt under a system instruction on the agent model.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0.5),
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		SafetySettings:    safetySettings(),
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.agentModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Gemini GenerateContent (agent) failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	logger.Info("completion finished", "model", c.agentModel, "reply_chars", len(text), "duration_ms", time.Since(start).Milliseconds())

	return text, nil
}
