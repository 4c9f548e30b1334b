package chunker

import (
	"strconv"
	"strings"

	"agentchat/internal/domain"
)

// PageChunker keeps each loaded document (a PDF page) as a single chunk.
type PageChunker struct{}

func NewPageChunker() *PageChunker { return &PageChunker{} }

func (c *PageChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := strings.TrimSpace(document.Content)
	if text == "" {
		return nil, nil
	}
	return []domain.Chunk{{
		DocumentID: document.ID,
		ChunkID:    ChunkID(document, 0),
		Page:       document.Page,
		Text:       text,
		Index:      0,
	}}, nil
}

// ChunkID names the index-th chunk of a page, e.g. "3fa2c1-p4:p4:0". The page
// is repeated so IDs stay unique when a loader reuses one ID for every page.
func ChunkID(document domain.Document, index int) string {
	return document.ID + ":p" + strconv.Itoa(document.Page) + ":" + strconv.Itoa(index)
}
