package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func newEmbeddingsServer(t *testing.T, failures int32, models *[]string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if models != nil {
			*models = append(*models, req.Model)
		}
		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","model":"` + req.Model + `","data":[{"object":"embedding","index":0,"embedding":[0.5,0.5,0.7071]}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "EMBED_TEST_KEY"})
	require.Error(t, err)
}

func TestEmbedUsesPassageAndQueryModels(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "test-key")
	var models []string
	srv, _ := newEmbeddingsServer(t, 0, &models)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Dimension())

	vec, err := c.Embed(context.Background(), "page text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, 3, c.Dimension())

	_, err = c.EmbedQuery(context.Background(), "question")
	require.NoError(t, err)

	// no explicit query model: both calls use the passage model
	assert.Equal(t, []string{DefaultModel, DefaultModel}, models)
}

func TestEmbedQueryModelOverride(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "test-key")
	var models []string
	srv, _ := newEmbeddingsServer(t, 0, &models)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY", QueryModel: DefaultQueryModel})
	require.NoError(t, err)
	_, err = c.EmbedQuery(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultQueryModel}, models)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "test-key")
	srv, calls := newEmbeddingsServer(t, 2, nil)

	c, err := NewClient(Config{
		BaseURL:    srv.URL,
		APIKeyEnv:  "EMBED_TEST_KEY",
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
	})
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestEmbedWithoutRetriesFailsFast(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "test-key")
	srv, calls := newEmbeddingsServer(t, 1, nil)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY"})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}
