package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nl2code/internal/config"
)

func newTestServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completion" {
			http.NotFound(w, r)
			return
		}
		var req llamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(llamaResponse{
			Content:         content,
			TokensPredicted: 42,
		})
	}))
}

func testClient(url string) *LlamaServerClient {
	cfg := config.Default().Model
	cfg.BaseURL = url
	return NewLlamaServerClient(cfg)
}

func TestLlamaTranslateExtractsCode(t *testing.T) {
	srv := newTestServer(t, "Here you go:\n```python\ndef add(a, b):\n    return a + b\n```\n")
	defer srv.Close()

	out, err := testClient(srv.URL).Translate(context.Background(),
		"create a function that adds two numbers", Options{Temperature: 0.3}, "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(out.Code, "def add(a, b):") {
		t.Errorf("Code = %q, want extracted function", out.Code)
	}
	if strings.Contains(out.Code, "```") {
		t.Error("fence markers should be stripped")
	}
	if out.Metadata["tokens_predicted"] != 42 {
		t.Errorf("metadata tokens_predicted = %v", out.Metadata["tokens_predicted"])
	}
}

func TestLlamaTranslateEmptyResponse(t *testing.T) {
	srv := newTestServer(t, "")
	defer srv.Close()

	out, err := testClient(srv.URL).Translate(context.Background(), "do a thing", Options{}, "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(out.Errors) == 0 {
		t.Error("empty completion should surface a 'no code' error")
	}
}

func TestLlamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Translate(context.Background(), "do a thing", Options{}, "")
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should mention status code: %v", err)
	}
}

func TestValidateInput(t *testing.T) {
	c := testClient("http://unused")

	if err := c.ValidateInput(context.Background(), "   \n"); err == nil {
		t.Error("blank input should be rejected")
	}
	if err := c.ValidateInput(context.Background(), "print hello"); err != nil {
		t.Errorf("small input should pass: %v", err)
	}
	huge := strings.Repeat("x", 8192*4+1)
	if err := c.ValidateInput(context.Background(), huge); err == nil {
		t.Error("oversized input should be rejected")
	}
}

func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced with lang", "```python\nx = 1\n```", "x = 1"},
		{"fenced bare", "```\nx = 1\n```", "x = 1"},
		{"raw code", "x = 1", "x = 1"},
		{"prose around fence", "Sure!\n```python\ny = 2\n```\nEnjoy.", "y = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCodeBlock(tt.in, "python"); got != tt.want {
				t.Errorf("ExtractCodeBlock(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
