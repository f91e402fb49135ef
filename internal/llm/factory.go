package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arrmate/arrmate/internal/config"
)

// Config holds the settings of one provider.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return newHTTPClient(c.Timeout)
}

// NewProvider creates the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.LLMConfig, timeout time.Duration) (Provider, error) {
	active := cfg.Active()
	pc := Config{
		BaseURL: active.BaseURL,
		APIKey:  active.APIKey,
		Model:   active.Model,
		Timeout: timeout,
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllama(pc), nil
	case config.ProviderOpenAI:
		return NewOpenAI(pc), nil
	case config.ProviderAnthropic:
		if pc.APIKey == "" {
			return nil, fmt.Errorf("anthropic: api key is required")
		}
		return NewAnthropic(pc), nil
	case config.ProviderGemini:
		return NewGemini(ctx, pc)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
