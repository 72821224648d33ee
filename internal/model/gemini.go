package model

import (
	"context"
	"fmt"

	"nl2code/internal/config"

	"google.golang.org/genai"
)

// GeminiClient implements Capability using the Google GenAI SDK.
// Useful when no local llama-server is running.
type GeminiClient struct {
	client           *genai.Client
	model            string
	maxContextTokens int
}

// NewGeminiClient creates a Gemini-backed capability.
func NewGeminiClient(ctx context.Context, cfg config.ModelConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiClient{
		client:           client,
		model:            modelName,
		maxContextTokens: cfg.MaxContextTokens,
	}, nil
}

// ValidateInput checks input acceptability against the context budget.
func (c *GeminiClient) ValidateInput(ctx context.Context, text string) error {
	return checkInput(text, c.maxContextTokens)
}

// Translate sends one generation request for the whole instruction.
func (c *GeminiClient) Translate(ctx context.Context, instruction string, opts Options, codeContext string) (*Output, error) {
	raw, err := c.generate(ctx, translateSystemPrompt, buildTranslatePrompt(instruction, codeContext), opts)
	if err != nil {
		return nil, err
	}

	code := ExtractCodeBlock(raw, "python")
	out := &Output{
		Code:     code,
		Metadata: map[string]any{"model": c.model},
	}
	if code == "" {
		out.Errors = append(out.Errors, "model returned no code")
	}
	return out, nil
}

// RefineCode asks the model to repair code given validator findings.
func (c *GeminiClient) RefineCode(ctx context.Context, code, errorContext string, opts Options) (string, error) {
	raw, err := c.generate(ctx, refineSystemPrompt, buildRefinePrompt(code, errorContext), opts)
	if err != nil {
		return "", err
	}
	refined := ExtractCodeBlock(raw, "python")
	if refined == "" {
		return "", fmt.Errorf("model returned no refined code")
	}
	return refined, nil
}

func (c *GeminiClient) generate(ctx context.Context, system, user string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return result.Text(), nil
}
