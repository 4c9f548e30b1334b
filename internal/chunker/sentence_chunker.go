package chunker

import (
	"regexp"
	"strings"

	"agentchat/internal/domain"
)

var sentenceSplitter = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SentenceChunker cuts a page into windows of consecutive sentences. Adjacent
// windows share overlap sentences so an answer spanning a boundary stays
// retrievable. Windows never cross pages.
type SentenceChunker struct {
	window  int
	overlap int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	overlapSentences = max(0, min(overlapSentences, sentencesPerChunk-1))
	return &SentenceChunker{window: sentencesPerChunk, overlap: overlapSentences}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := splitSentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	stride := c.window - c.overlap

	var chunks []domain.Chunk
	for start := 0; ; start += stride {
		end := min(start+c.window, len(sentences))
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    ChunkID(document, len(chunks)),
			Page:       document.Page,
			Text:       strings.Join(sentences[start:end], " "),
			Index:      len(chunks),
		})
		if end == len(sentences) {
			return chunks, nil
		}
	}
}

// splitSentences returns the trimmed sentences of text. Text without terminal
// punctuation is one sentence.
func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplitter.FindAllString(text, -1) {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		if trimmed := strings.Join(strings.Fields(text), " "); trimmed != "" {
			out = []string{trimmed}
		}
	}
	return out
}
