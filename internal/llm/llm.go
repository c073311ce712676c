package llm

import (
	"github.com/conciergebot/concierge/internal/config"
	"github.com/sashabaranov/go-openai"
)

// NewClient creates a chat completion client for any OpenAI-compatible
// endpoint, wrapped with a request rate limiter when one is configured.
func NewClient(cfg config.LLMConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return NewRateLimited(openai.NewClientWithConfig(clientCfg), cfg.RequestsPerMinute)
}
