package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DocumentConfig points at the document the assistant answers questions about.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	QueryModel  string `yaml:"query_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string                `yaml:"type"`
	Concurrency int                   `yaml:"concurrency"`
	OpenAI      *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RetrieverConfig struct {
	K int `yaml:"k"`
}

type SerpAPIConfig struct {
	APIKeyEnv   string            `yaml:"api_key_env"`
	BaseURL     string            `yaml:"base_url"`
	Params      map[string]string `yaml:"params"`
	TimeoutSecs int               `yaml:"timeout_secs"`
}

type TavilyConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	MaxResults  int    `yaml:"max_results"`
	SearchDepth string `yaml:"search_depth"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type SearchConfig struct {
	SerpAPI SerpAPIConfig `yaml:"serpapi"`
	Tavily  TavilyConfig  `yaml:"tavily"`
}

// LLMConfig configures the chat model driving the agent.
type LLMConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	Model         string  `yaml:"model"`
	Temperature   float32 `yaml:"temperature"`
	SystemPrompt  string  `yaml:"system_prompt"`
	MaxIterations int     `yaml:"max_iterations"`
	TimeoutSecs   int     `yaml:"timeout_secs"`
}

type GroundednessConfig struct {
	Model string `yaml:"model"`
	// Pair is "latest" or "head".
	Pair string `yaml:"pair"`
}

type SessionConfig struct {
	MaxMessages int `yaml:"max_messages"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Document     DocumentConfig     `yaml:"document"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Chunker      ChunkerConfig      `yaml:"chunker"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Retriever    RetrieverConfig    `yaml:"retriever"`
	Search       SearchConfig       `yaml:"search"`
	LLM          LLMConfig          `yaml:"llm"`
	Groundedness GroundednessConfig `yaml:"groundedness"`
	Session      SessionConfig      `yaml:"session"`
	Summarizer   SummarizerConfig   `yaml:"summarizer"`
	Log          LogConfig          `yaml:"log"`
}

// Load reads the config at path and fills in defaults. A missing file is an
// error; only LoadDefault falls back to defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/agentchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/agentchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return os.WriteFile(path, data, 0o644)
}

// RequiredEnv lists the environment variables holding the credentials the
// configured services need.
func (c *AppConfig) RequiredEnv() []string {
	seen := map[string]struct{}{}
	add := func(name string) {
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	add(c.LLM.APIKeyEnv)
	add(c.Search.SerpAPI.APIKeyEnv)
	add(c.Search.Tavily.APIKeyEnv)
	if c.Embedder.Type == "openai" && c.Embedder.OpenAI != nil {
		add(c.Embedder.OpenAI.APIKeyEnv)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RequireEnv fails with the full list of unset variables.
func RequireEnv(names ...string) error {
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, ".config", "agentchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		Chunker:     ChunkerConfig{Type: "page"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "frequency"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.upstage.ai/v1/solar"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "UPSTAGE_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "solar-embedding-1-large-passage"
		}
		if cfg.Embedder.OpenAI.QueryModel == "" {
			cfg.Embedder.OpenAI.QueryModel = "solar-embedding-1-large-query"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "page"
	}
	if cfg.Chunker.Type == "sentence" && cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "agentchat"
		}
		if cfg.VectorStore.Qdrant.Distance == "" {
			cfg.VectorStore.Qdrant.Distance = "Cosine"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 10
		}
	}

	if cfg.Retriever.K == 0 {
		cfg.Retriever.K = 2
	}

	if cfg.Search.SerpAPI.APIKeyEnv == "" {
		cfg.Search.SerpAPI.APIKeyEnv = "SERPAPI_API_KEY"
	}
	if cfg.Search.SerpAPI.Params == nil {
		cfg.Search.SerpAPI.Params = map[string]string{"engine": "google", "q": "Coffee", "hl": "ko"}
	}
	if cfg.Search.SerpAPI.TimeoutSecs == 0 {
		cfg.Search.SerpAPI.TimeoutSecs = 30
	}
	if cfg.Search.Tavily.APIKeyEnv == "" {
		cfg.Search.Tavily.APIKeyEnv = "TAVILY_API_KEY"
	}
	if cfg.Search.Tavily.MaxResults == 0 {
		cfg.Search.Tavily.MaxResults = 5
	}
	if cfg.Search.Tavily.SearchDepth == "" {
		cfg.Search.Tavily.SearchDepth = "advanced"
	}
	if cfg.Search.Tavily.TimeoutSecs == 0 {
		cfg.Search.Tavily.TimeoutSecs = 30
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.upstage.ai/v1/solar"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "UPSTAGE_API_KEY"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "solar-1-mini-chat"
	}
	if cfg.LLM.SystemPrompt == "" {
		cfg.LLM.SystemPrompt = "You are a helpful assistant"
	}
	if cfg.LLM.MaxIterations == 0 {
		cfg.LLM.MaxIterations = 15
	}

	if cfg.Groundedness.Model == "" {
		cfg.Groundedness.Model = "groundedness-check"
	}
	if cfg.Groundedness.Pair == "" {
		cfg.Groundedness.Pair = "latest"
	}

	if cfg.Session.MaxMessages == 0 {
		cfg.Session.MaxMessages = 4
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}

	if cfg.Log.File == "" {
		cfg.Log.File = "agentchat.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
