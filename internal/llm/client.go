// Package llm builds clients for OpenAI-compatible chat completion endpoints.
package llm

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL   = "https://api.upstage.ai/v1/solar"
	DefaultAPIKeyEnv = "UPSTAGE_API_KEY"
	DefaultChatModel = "solar-1-mini-chat"
)

// ChatCompleter is the part of the OpenAI client the agent and the
// groundedness verifier depend on.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
}

// Settings locate an OpenAI-compatible API.
type Settings struct {
	BaseURL   string
	APIKeyEnv string
	// Timeout bounds a single HTTP round trip; zero leaves it to the caller's context.
	Timeout time.Duration
}

// MakeClient resolves the API key from the environment and returns a client
// pointed at the configured base URL.
func MakeClient(s Settings) (*go_openai.Client, error) {
	if s.APIKeyEnv == "" {
		s.APIKeyEnv = DefaultAPIKeyEnv
	}
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	apiKey := os.Getenv(s.APIKeyEnv)
	if apiKey == "" {
		return nil, errors.Errorf("no API key in env %s", s.APIKeyEnv)
	}
	config := go_openai.DefaultConfig(apiKey)
	config.BaseURL = s.BaseURL
	if s.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: s.Timeout}
	}
	return go_openai.NewClientWithConfig(config), nil
}
