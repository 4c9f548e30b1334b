// Package index builds the searchable vector index over the source document.
package index

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"agentchat/internal/domain"
	"agentchat/internal/loader"
)

// QueryEmbedder is implemented by embedders that use a dedicated model for queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Builder assembles an Index from a document path.
type Builder struct {
	chunker             domain.Chunker
	embedder            domain.Embedder
	store               domain.VectorStore
	summarizer          domain.Summarizer
	summaryMaxSentences int
	concurrency         int
}

func NewBuilder(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, summaryMaxSentences, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Builder{
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		concurrency:         concurrency,
	}
}

// Index is a queryable view over one embedded document.
type Index struct {
	embedder domain.Embedder
	store    domain.VectorStore
	chunks   []domain.Chunk
	pages    int
	path     string
	summary  string
}

// Build loads path, chunks and embeds it, and fills the vector store.
// Load errors are returned unchanged so startup can abort before the UI renders.
func (b *Builder) Build(ctx context.Context, path string) (*Index, error) {
	documents, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	var texts []string
	for _, d := range documents {
		cs, err := b.chunker.Chunk(d)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to chunk page %d", d.Page)
		}
		for _, c := range cs {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
	}
	if len(chunks) == 0 {
		return nil, errors.Wrap(loader.ErrNoContent, path)
	}

	if err := b.embedder.Prepare(texts); err != nil {
		return nil, errors.Wrap(err, "failed to prepare embedder")
	}

	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range chunks {
		i := i
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return errors.Wrapf(err, "failed to embed chunk %s", chunks[i].ChunkID)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dimension := b.embedder.Dimension()
	if dimension == 0 && len(vectors) > 0 {
		dimension = len(vectors[0])
	}
	if err := b.store.Clear(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to clear vector store")
	}
	if err := b.store.Init(ctx, dimension); err != nil {
		return nil, errors.Wrap(err, "failed to init vector store")
	}
	if err := b.store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, errors.Wrap(err, "failed to upsert vectors")
	}

	idx := &Index{
		embedder: b.embedder,
		store:    b.store,
		chunks:   chunks,
		pages:    len(documents),
		path:     path,
	}
	if b.summarizer != nil {
		summary, err := b.summarizer.Summarize(documents, b.summaryMaxSentences)
		if err != nil {
			return nil, errors.Wrap(err, "failed to summarize document")
		}
		idx.summary = summary
	}

	log.Info().
		Str("path", path).
		Int("pages", idx.pages).
		Int("chunks", len(chunks)).
		Int("dimension", dimension).
		Str("embedder", b.embedder.Name()).
		Msg("document indexed")
	return idx, nil
}

func (i *Index) Path() string    { return i.path }
func (i *Index) Pages() int      { return i.pages }
func (i *Index) Chunks() int     { return len(i.chunks) }
func (i *Index) Summary() string { return i.summary }

// Retrieve returns the k chunks most similar to query. When the query has no
// usable embedding or every score is zero it falls back to token overlap ranking.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	var (
		vec []float32
		err error
	)
	if qe, ok := i.embedder.(QueryEmbedder); ok {
		vec, err = qe.EmbedQuery(ctx, query)
	} else {
		vec, err = i.embedder.Embed(ctx, query)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}
	if isZero(vec) {
		return i.lexicalSearch(query, k), nil
	}
	res, err := i.store.Search(ctx, vec, k)
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	allZero := true
	for _, r := range res {
		if r.Score > 1e-9 {
			allZero = false
			break
		}
	}
	if allZero {
		return i.lexicalSearch(query, k), nil
	}
	return res, nil
}

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func (i *Index) lexicalSearch(query string, topK int) []domain.SearchResult {
	qset := toTokenSet(query)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(i.chunks))
	for j, ch := range i.chunks {
		scores[j] = pair{j, overlapOchiai(qset, ch.Text)}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	if topK <= 0 {
		topK = 5
	}
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.SearchResult, 0, topK)
	for _, p := range scores[:topK] {
		out = append(out, domain.SearchResult{Chunk: i.chunks[p.idx], Score: p.score})
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over unique tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
