package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"agentchat/internal/agent"
	"agentchat/internal/chat"
	"agentchat/internal/chunker"
	"agentchat/internal/config"
	"agentchat/internal/domain"
	"agentchat/internal/embedding"
	"agentchat/internal/embedding/openai"
	"agentchat/internal/embedding/tfidf"
	"agentchat/internal/groundedness"
	"agentchat/internal/index"
	"agentchat/internal/llm"
	"agentchat/internal/search/serpapi"
	"agentchat/internal/search/tavily"
	"agentchat/internal/summarizer"
	"agentchat/internal/tools"
	"agentchat/internal/vectorstore"
	"agentchat/internal/vectorstore/memory"
	"agentchat/internal/vectorstore/qdrant"
)

type app struct {
	index    *index.Index
	pipeline *chat.Pipeline
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// assemble builds every component from cfg and indexes the document.
func assemble(ctx context.Context, cfg *config.AppConfig) (*app, error) {
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	st, err := newStorage(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, errors.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	idx, err := index.NewBuilder(ch, emb, st, sum, cfg.Summarizer.MaxSentences, cfg.Embedder.Concurrency).
		Build(ctx, cfg.Document.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to index document")
	}

	google, err := serpapi.NewClient(serpapi.Config{
		BaseURL: cfg.Search.SerpAPI.BaseURL,
		APIKey:  os.Getenv(cfg.Search.SerpAPI.APIKeyEnv),
		Params:  cfg.Search.SerpAPI.Params,
		Timeout: secs(cfg.Search.SerpAPI.TimeoutSecs),
	})
	if err != nil {
		return nil, err
	}
	web, err := tavily.NewClient(tavily.Config{
		BaseURL:     cfg.Search.Tavily.BaseURL,
		APIKey:      os.Getenv(cfg.Search.Tavily.APIKeyEnv),
		MaxResults:  cfg.Search.Tavily.MaxResults,
		SearchDepth: cfg.Search.Tavily.SearchDepth,
		Timeout:     secs(cfg.Search.Tavily.TimeoutSecs),
	})
	if err != nil {
		return nil, err
	}
	registry, err := tools.NewStandardSet(google, web, idx, cfg.Retriever.K)
	if err != nil {
		return nil, err
	}

	client, err := llm.MakeClient(llm.Settings{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Timeout:   secs(cfg.LLM.TimeoutSecs),
	})
	if err != nil {
		return nil, err
	}
	executor, err := agent.New(client, registry, agent.Config{
		Model:         cfg.LLM.Model,
		SystemPrompt:  cfg.LLM.SystemPrompt,
		Temperature:   cfg.LLM.Temperature,
		MaxIterations: cfg.LLM.MaxIterations,
	})
	if err != nil {
		return nil, err
	}

	pair, err := groundedness.ParsePairMode(cfg.Groundedness.Pair)
	if err != nil {
		return nil, err
	}
	verifier, err := groundedness.New(client, groundedness.Config{Model: cfg.Groundedness.Model, Pair: pair})
	if err != nil {
		return nil, err
	}

	return &app{index: idx, pipeline: chat.NewPipeline(executor, verifier)}, nil
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			QueryModel: cfg.OpenAI.QueryModel,
			Timeout:    secs(cfg.OpenAI.TimeoutSecs),
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, errors.Wrap(err, "openai embedder init failed")
		}
		return client, nil
	}
	return nil, errors.Errorf("unknown embedder: %s", cfg.Type)
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "page", "":
		return chunker.NewPageChunker(), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	}
	return nil, errors.Errorf("unknown chunker: %s", cfg.Type)
}

func newStorage(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Distance:   cfg.Qdrant.Distance,
			Timeout:    secs(cfg.Qdrant.TimeoutSecs),
		}), nil
	}
	return nil, errors.Errorf("unknown vector store: %s", cfg.Type)
}
