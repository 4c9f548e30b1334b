package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentchat/internal/domain"
)

func TestSearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}},
		[][]float32{{1, 0}, {0, 1}, {3, 3}},
	))
	assert.Equal(t, 3, s.Len())

	res, err := s.Search(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b", res[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "c", res[1].Chunk.ChunkID)
}

func TestSearchClampsTopK(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "only"}}, [][]float32{{1}}))

	res, err := s.Search(ctx, []float32{1}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))

	require.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, nil))
	require.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float32{{1, 2, 3}}))

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float32{{1, 2}}))
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}
