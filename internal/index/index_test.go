package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentchat/internal/chunker"
	"agentchat/internal/domain"
	"agentchat/internal/embedding/tfidf"
	"agentchat/internal/summarizer"
	"agentchat/internal/vectorstore/memory"
)

const paper = `SOLAR is a large language model. It introduces depth up-scaling to grow a base model.
Depth up-scaling duplicates transformer layers and continues pretraining.
The instruction tuned variant is evaluated on the Open LLM leaderboard.
Alignment tuning uses direct preference optimization.`

func writePaper(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solar.txt")
	require.NoError(t, os.WriteFile(path, []byte(paper), 0o644))
	return path
}

func newBuilder() *Builder {
	return NewBuilder(chunker.NewSentenceChunker(1, 0), tfidf.NewEmbedder(), memory.NewStorage(), summarizer.NewFrequencySummarizer(), 1, 2)
}

func TestBuildAndRetrieve(t *testing.T) {
	ctx := context.Background()
	idx, err := newBuilder().Build(ctx, writePaper(t))
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Pages())
	assert.Equal(t, 5, idx.Chunks())
	assert.NotEmpty(t, idx.Summary())

	res, err := idx.Retrieve(ctx, "preference optimization alignment", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Contains(t, res[0].Chunk.Text, "direct preference optimization")
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func TestRetrieveFallsBackToLexical(t *testing.T) {
	ctx := context.Background()
	idx, err := newBuilder().Build(ctx, writePaper(t))
	require.NoError(t, err)

	// "what" and "is" are stopwords; the vector is zero so overlap ranking kicks in
	res, err := idx.Retrieve(ctx, "what is", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Contains(t, res[0].Chunk.Text, "is")
}

func TestBuildMissingFile(t *testing.T) {
	_, err := newBuilder().Build(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

type failingEmbedder struct{ *tfidf.Embedder }

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func TestBuildPropagatesEmbeddingErrors(t *testing.T) {
	b := NewBuilder(chunker.NewPageChunker(), &failingEmbedder{Embedder: tfidf.NewEmbedder()}, memory.NewStorage(), nil, 0, 1)
	_, err := b.Build(context.Background(), writePaper(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")
}

type queryEmbedder struct {
	*tfidf.Embedder
	queries []string
}

func (q *queryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	q.queries = append(q.queries, text)
	return q.Embed(ctx, text)
}

func TestRetrievePrefersQueryEmbedding(t *testing.T) {
	ctx := context.Background()
	qe := &queryEmbedder{Embedder: tfidf.NewEmbedder()}
	b := NewBuilder(chunker.NewPageChunker(), qe, memory.NewStorage(), nil, 0, 1)
	idx, err := b.Build(ctx, writePaper(t))
	require.NoError(t, err)

	_, err = idx.Retrieve(ctx, "depth up-scaling", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"depth up-scaling"}, qe.queries)
}

var _ domain.Retriever = (*Index)(nil)
