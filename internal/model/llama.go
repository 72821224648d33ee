package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"nl2code/internal/config"
	"nl2code/internal/logging"
)

// LlamaServerClient implements Capability against a local llama-server
// (llama.cpp) completion endpoint.
type LlamaServerClient struct {
	baseURL          string
	maxContextTokens int
	threads          int
	httpClient       *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewLlamaServerClient creates a client from resolved model config.
func NewLlamaServerClient(cfg config.ModelConfig) *LlamaServerClient {
	return &LlamaServerClient{
		baseURL:          cfg.BaseURL,
		maxContextTokens: cfg.MaxContextTokens,
		threads:          cfg.Threads,
		httpClient: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
	}
}

// llamaRequest is the llama-server /completion request body.
type llamaRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	NPredict    int     `json:"n_predict,omitempty"`
	Threads     int     `json:"n_threads,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// llamaResponse is the llama-server /completion response body.
type llamaResponse struct {
	Content         string `json:"content"`
	StoppedLimit    bool   `json:"stopped_limit"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	Error           *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ValidateInput checks input acceptability against the context budget.
func (c *LlamaServerClient) ValidateInput(ctx context.Context, text string) error {
	return checkInput(text, c.maxContextTokens)
}

// Translate sends one completion request for the whole instruction.
func (c *LlamaServerClient) Translate(ctx context.Context, instruction string, opts Options, codeContext string) (*Output, error) {
	prompt := translateSystemPrompt + "\n\n" + buildTranslatePrompt(instruction, codeContext)
	raw, meta, err := c.complete(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	code := ExtractCodeBlock(raw, "python")
	out := &Output{Code: code, Metadata: meta}
	if code == "" {
		out.Errors = append(out.Errors, "model returned no code")
	}
	return out, nil
}

// RefineCode asks the model to repair code given validator findings.
func (c *LlamaServerClient) RefineCode(ctx context.Context, code, errorContext string, opts Options) (string, error) {
	prompt := refineSystemPrompt + "\n\n" + buildRefinePrompt(code, errorContext)
	raw, _, err := c.complete(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	refined := ExtractCodeBlock(raw, "python")
	if refined == "" {
		return "", fmt.Errorf("model returned no refined code")
	}
	return refined, nil
}

// complete performs one paced HTTP completion call.
func (c *LlamaServerClient) complete(ctx context.Context, prompt string, opts Options) (string, map[string]any, error) {
	// Pace requests: local servers choke on back-to-back submissions
	// while a previous generation is still streaming out.
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := llamaRequest{
		Prompt:      prompt,
		Temperature: opts.Temperature,
		NPredict:    opts.MaxTokens,
		Threads:     c.threads,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(jsonData))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("llama-server request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("llama-server returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var lr llamaResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if lr.Error != nil {
		return "", nil, fmt.Errorf("llama-server error: %s", lr.Error.Message)
	}

	logging.Model("completion: %d eval + %d predicted tokens in %v",
		lr.TokensEvaluated, lr.TokensPredicted, time.Since(start))

	meta := map[string]any{
		"tokens_evaluated": lr.TokensEvaluated,
		"tokens_predicted": lr.TokensPredicted,
		"truncated":        lr.StoppedLimit,
	}
	return lr.Content, meta, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
