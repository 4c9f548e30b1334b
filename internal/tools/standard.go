package tools

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"agentchat/internal/domain"
	"agentchat/internal/search/tavily"
)

const (
	GoogleSearchName        = "google_search"
	GoogleSearchDescription = "Use google search engine"

	TavilySearchName        = "tavily_search_results_json"
	TavilySearchDescription = "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events. Input should be a search query."

	PaperReviewName        = "paper_review"
	PaperReviewDescription = "If you read the content of the paper and ask questions related to the paper, search for it!"

	// DefaultRetrieveK is the number of chunks the retriever tool returns.
	DefaultRetrieveK = 2
)

// QueryInput is the argument shape shared by all standard tools.
type QueryInput struct {
	Query string `json:"query" jsonschema:"description=search query"`
}

// GoogleSearcher runs a query through a general-purpose search engine and
// returns a condensed text answer.
type GoogleSearcher interface {
	Run(ctx context.Context, query string) (string, error)
}

// WebSearcher runs a query through an LLM-oriented search engine.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]tavily.Result, error)
}

func NewGoogleSearchTool(s GoogleSearcher) (*Tool, error) {
	if s == nil {
		return nil, errors.New("google search tool needs a searcher")
	}
	return New(GoogleSearchName, GoogleSearchDescription, func(ctx context.Context, in QueryInput) (string, error) {
		return s.Run(ctx, in.Query)
	})
}

func NewTavilySearchTool(s WebSearcher) (*Tool, error) {
	if s == nil {
		return nil, errors.New("tavily search tool needs a searcher")
	}
	return New(TavilySearchName, TavilySearchDescription, func(ctx context.Context, in QueryInput) ([]tavily.Result, error) {
		return s.Search(ctx, in.Query)
	})
}

// NewRetrieverTool returns the top k chunks for the query joined by blank lines.
func NewRetrieverTool(r domain.Retriever, k int) (*Tool, error) {
	if r == nil {
		return nil, errors.New("retriever tool needs a retriever")
	}
	if k <= 0 {
		k = DefaultRetrieveK
	}
	return New(PaperReviewName, PaperReviewDescription, func(ctx context.Context, in QueryInput) (string, error) {
		results, err := r.Retrieve(ctx, in.Query, k)
		if err != nil {
			return "", err
		}
		texts := make([]string, 0, len(results))
		for _, res := range results {
			texts = append(texts, res.Chunk.Text)
		}
		return strings.Join(texts, "\n\n"), nil
	})
}

// NewStandardSet builds the registry the agent runs with: the LLM-oriented
// search tool, the document retriever and the general search engine.
func NewStandardSet(google GoogleSearcher, web WebSearcher, retriever domain.Retriever, k int) (*Registry, error) {
	tavilyTool, err := NewTavilySearchTool(web)
	if err != nil {
		return nil, err
	}
	retrieverTool, err := NewRetrieverTool(retriever, k)
	if err != nil {
		return nil, err
	}
	googleTool, err := NewGoogleSearchTool(google)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, t := range []*Tool{tavilyTool, retrieverTool, googleTool} {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
