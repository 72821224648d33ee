package config

import "time"

// ModelConfig configures the language-model capability.
type ModelConfig struct {
	Provider string `yaml:"provider"` // llama, gemini, none
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`

	// Sampling / resource parameters
	Temperature      float64 `yaml:"temperature"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
	MaxOutputTokens  int     `yaml:"max_output_tokens"`
	Threads          int     `yaml:"threads"`
	GPULayers        int     `yaml:"gpu_layers"`
}

func defaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:         "llama",
		BaseURL:          "http://127.0.0.1:8080",
		Model:            "qwen2.5-coder-7b-instruct",
		Timeout:          "120s",
		Temperature:      0.3,
		MaxContextTokens: 8192,
		MaxOutputTokens:  2048,
		Threads:          4,
		GPULayers:        0,
	}
}

// TimeoutDuration returns the parsed request timeout.
func (m ModelConfig) TimeoutDuration() time.Duration {
	return parseDuration(m.Timeout, 120*time.Second)
}
