package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentchat/internal/domain"
)

func TestStorageRoundTrip(t *testing.T) {
	var upserted []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/collections/paper":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/paper":
			var body map[string]map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Cosine", body["vectors"]["distance"])
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/paper/points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			upserted = body.Points
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/collections/paper/points/search":
			_, _ = w.Write([]byte(`{"result":[{"score":0.9,"payload":{"document_id":"d","chunk_id":"d:0","page":2,"index":0,"text":"hello"}}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "paper"})

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{DocumentID: "d", ChunkID: "d:0", Page: 2, Text: "hello"}}, [][]float32{{1, 0}}))
	require.Len(t, upserted, 1)
	assert.Equal(t, PointID("d:0"), upserted[0]["id"])

	res, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "hello", res[0].Chunk.Text)
	assert.Equal(t, 2, res[0].Chunk.Page)
	assert.InDelta(t, 0.9, res[0].Score, 1e-9)
}

func TestStorageReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "paper"})
	require.Error(t, s.Init(context.Background(), 4))
	require.Error(t, s.Clear(context.Background()))
}

func TestPointIDIsStable(t *testing.T) {
	assert.Equal(t, PointID("x:1"), PointID("x:1"))
	assert.NotEqual(t, PointID("x:1"), PointID("x:2"))
}
