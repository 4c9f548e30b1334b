// Package summarizer builds the synopsis shown above the chat.
package summarizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"agentchat/internal/domain"
)

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// redundancyThreshold is the token Jaccard overlap above which a candidate
// sentence repeats one already picked (running headers, repeated captions).
const redundancyThreshold = 0.6

// FrequencySummarizer picks the sentences whose terms are both frequent and
// spread across many pages of the document.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords()}
}

type sentence struct {
	page  int
	pos   int
	text  string
	terms []string
	score float64
}

// Summarize returns up to maxSentences sentences in reading order. When the
// document spans several pages each run of sentences is labelled with its
// page, e.g. "[p.1] ... [p.4] ...".
func (s *FrequencySummarizer) Summarize(documents []domain.Document, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}

	var sentences []*sentence
	pages := map[int]struct{}{}
	for _, d := range documents {
		found := sentencePattern.FindAllString(d.Content, -1)
		if len(found) == 0 && strings.TrimSpace(d.Content) != "" {
			found = []string{d.Content}
		}
		for _, text := range found {
			text = strings.Join(strings.Fields(text), " ")
			if text == "" {
				continue
			}
			sentences = append(sentences, &sentence{
				page:  d.Page,
				pos:   len(sentences),
				text:  text,
				terms: s.terms(text),
			})
			pages[d.Page] = struct{}{}
		}
	}
	if len(sentences) == 0 {
		return "", nil
	}

	weights := s.termWeights(sentences, len(pages))
	for _, sent := range sentences {
		for _, t := range sent.terms {
			sent.score += weights[t]
		}
		// long sentences should not win on length alone
		if n := float64(len(sent.terms)); n > 0 {
			sent.score /= math.Sqrt(n)
		}
	}

	ranked := make([]*sentence, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var picked []*sentence
	for _, cand := range ranked {
		if len(picked) == maxSentences {
			break
		}
		if repeatsAny(cand, picked) {
			continue
		}
		picked = append(picked, cand)
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].pos < picked[j].pos })

	return render(picked, len(pages) > 1), nil
}

// termWeights scores each term by its normalised frequency times the share
// of pages it occurs on.
func (s *FrequencySummarizer) termWeights(sentences []*sentence, pageCount int) map[string]float64 {
	freq := map[string]float64{}
	onPages := map[string]map[int]struct{}{}
	for _, sent := range sentences {
		for _, t := range sent.terms {
			freq[t]++
			if onPages[t] == nil {
				onPages[t] = map[int]struct{}{}
			}
			onPages[t][sent.page] = struct{}{}
		}
	}
	maxF := 0.0
	for _, f := range freq {
		maxF = math.Max(maxF, f)
	}
	weights := make(map[string]float64, len(freq))
	for t, f := range freq {
		spread := 1.0
		if pageCount > 1 {
			spread = float64(len(onPages[t])) / float64(pageCount)
		}
		weights[t] = f / maxF * spread
	}
	return weights
}

func (s *FrequencySummarizer) terms(text string) []string {
	var out []string
	for _, tok := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func repeatsAny(cand *sentence, picked []*sentence) bool {
	for _, p := range picked {
		if jaccard(cand.terms, p.terms) > redundancyThreshold {
			return true
		}
	}
	return false
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = false
	}
	inter := 0
	union := len(set)
	for _, t := range b {
		seen, ok := set[t]
		switch {
		case !ok:
			set[t] = true
			union++
		case !seen:
			set[t] = true
			inter++
		}
	}
	return float64(inter) / float64(union)
}

func render(picked []*sentence, labelPages bool) string {
	var b strings.Builder
	page := -1
	for _, sent := range picked {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		if labelPages && sent.page != page {
			fmt.Fprintf(&b, "[p.%d] ", sent.page)
			page = sent.page
		}
		b.WriteString(sent.text)
	}
	return b.String()
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "than", "so", "such", "into", "about", "between",
		"through", "during", "before", "after", "we", "our", "can", "will", "also", "which", "et", "al",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
