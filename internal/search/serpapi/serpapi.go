// Package serpapi queries search engines (Google, Naver, YouTube, ...) through SerpAPI.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://serpapi.com"

// NoResult is returned by Run when the response holds nothing usable.
const NoResult = "No good search result found"

type Config struct {
	BaseURL string
	APIKey  string
	// Params are fixed query parameters such as engine, hl, gl. A "q" entry
	// acts as a placeholder and is replaced by the query passed to Run.
	Params  map[string]string
	Timeout time.Duration
}

// Client runs queries against the SerpAPI search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	params  map[string]string
	client  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("serpapi: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	params := make(map[string]string, len(cfg.Params))
	for k, v := range cfg.Params {
		params[k] = v
	}
	if params["engine"] == "" {
		params["engine"] = "google"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		params:  params,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Params returns a copy of the fixed query parameters.
func (c *Client) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// Run searches for query and condenses the response into a short text answer.
func (c *Client) Run(ctx context.Context, query string) (string, error) {
	res, err := c.Results(ctx, query)
	if err != nil {
		return "", err
	}
	return processResponse(res)
}

// Results returns the raw decoded SerpAPI response.
func (c *Client) Results(ctx context.Context, query string) (map[string]any, error) {
	q := url.Values{}
	for k, v := range c.params {
		q.Set(k, v)
	}
	q.Set("q", query)
	q.Set("api_key", c.apiKey)
	q.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	var res map[string]any
	if err := json.Unmarshal(body, &res); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("serpapi: non-200 response received: %s", resp.Status)
		}
		return nil, errors.Wrap(err, "failed to parse response body")
	}
	if msg, ok := res["error"].(string); ok && msg != "" {
		return nil, errors.Errorf("serpapi: got error from SerpAPI: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("serpapi: non-200 response received: %s", resp.Status)
	}
	return res, nil
}

func processResponse(res map[string]any) (string, error) {
	if box := firstObject(res["answer_box"]); box != nil {
		if s := str(box["answer"]); s != "" {
			return s, nil
		}
		if s := str(box["snippet"]); s != "" {
			return s, nil
		}
		if words, ok := box["snippet_highlighted_words"].([]any); ok && len(words) > 0 {
			if s := str(words[0]); s != "" {
				return s, nil
			}
		}
	}
	if sports, ok := res["sports_results"].(map[string]any); ok {
		if spotlight, ok := sports["game_spotlight"]; ok {
			data, _ := json.Marshal(spotlight)
			return string(data), nil
		}
	}
	if kg, ok := res["knowledge_graph"].(map[string]any); ok {
		if s := str(kg["description"]); s != "" {
			return s, nil
		}
	}
	if organic, ok := res["organic_results"].([]any); ok {
		var snippets []string
		for _, r := range organic {
			if m, ok := r.(map[string]any); ok {
				if s := str(m["snippet"]); s != "" {
					snippets = append(snippets, s)
				}
			}
		}
		if len(snippets) > 0 {
			return strings.Join(snippets, "\n"), nil
		}
	}
	return NoResult, nil
}

func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) > 0 {
			if m, ok := t[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
