package openai

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseURL    = "https://api.upstage.ai/v1/solar"
	DefaultModel      = "solar-embedding-1-large-passage"
	DefaultQueryModel = "solar-embedding-1-large-query"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
// Upstage exposes separate passage and query models, so documents and queries
// may be embedded with different model names that share one vector space.
type Client struct {
	client     *go_openai.Client
	model      string
	queryModel string
	maxRetries uint64
	baseDelay  time.Duration

	mu        sync.RWMutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	QueryModel string
	Timeout    time.Duration
	MaxRetries int
	// BaseDelay is the first backoff step; zero means 200ms.
	BaseDelay time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "UPSTAGE_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, errors.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.QueryModel == "" {
		cfg.QueryModel = cfg.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	oc := go_openai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:     go_openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		queryModel: cfg.QueryModel,
		maxRetries: uint64(cfg.MaxRetries),
		baseDelay:  cfg.BaseDelay,
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Prepare is not required for remote embedding. Dimension is set lazily on first embed.
func (c *Client) Prepare(corpus []string) error { return nil }

func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Embed returns the passage embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.model, text)
}

// EmbedQuery returns the query embedding of text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.queryModel, text)
}

func (c *Client) embed(ctx context.Context, model, text string) ([]float32, error) {
	var vec []float32
	backoff := retry.WithCappedDuration(5*time.Second,
		retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, go_openai.EmbeddingRequest{
			Input: []string{text},
			Model: go_openai.EmbeddingModel(model),
		})
		if err != nil {
			if isRetryable(err) {
				log.Debug().Err(err).Str("model", model).Msg("embedding request failed, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errors.New("no embedding returned")
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "embeddings request to %s failed", model)
	}

	c.mu.Lock()
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	c.mu.Unlock()
	return vec, nil
}

func isRetryable(err error) bool {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}
