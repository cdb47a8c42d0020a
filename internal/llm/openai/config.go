package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/llm"
)

// Config for the chat-completions client. Any OpenAI-compatible endpoint works;
// the defaults point at DeepSeek.
type Config struct {
	APIKey                string        // if empty, falls back to env DEEPSEEK_API_KEY
	BaseURL               string        // default https://api.deepseek.com
	Model                 string        // default deepseek-chat
	ExtractionTemperature float32       // 0..2
	EnrichmentTemperature float32       // 0..2
	ExtractionMaxTokens   int           //
	EnrichmentMaxTokens   int           //
	Timeout               time.Duration // http client timeout
}

// ConfigFrom copies the LLM section of the application config.
func ConfigFrom(c common.LLMConfig) Config {
	return Config{
		APIKey:                c.APIKey,
		BaseURL:               c.BaseURL,
		Model:                 c.Model,
		ExtractionTemperature: c.ExtractionTemperature,
		EnrichmentTemperature: c.EnrichmentTemperature,
		ExtractionMaxTokens:   c.ExtractionMaxTokens,
		EnrichmentMaxTokens:   c.EnrichmentMaxTokens,
		Timeout:               c.Timeout,
	}
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	itemsSchema      *jsonschema.Schema
	enrichmentSchema *jsonschema.Schema
}

var (
	_ llm.ItemExtractor = (*Client)(nil)
	_ llm.ItemEnricher  = (*Client)(nil)
)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepseek.com"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.ExtractionMaxTokens <= 0 {
		cfg.ExtractionMaxTokens = 4096
	}
	if cfg.EnrichmentMaxTokens <= 0 {
		cfg.EnrichmentMaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		log:              logger,
		itemsSchema:      llm.MustCompileSchema("items.json", llm.BuildItemsJSONSchema()),
		enrichmentSchema: llm.MustCompileSchema("enrichment.json", llm.BuildEnrichmentJSONSchema()),
	}
}
