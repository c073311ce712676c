package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// RateLimited wraps a Client and blocks before each completion request until
// the configured requests-per-minute budget allows it.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimited creates a rate limited client. A requestsPerMinute of zero
// or less disables limiting.
func NewRateLimited(inner Client, requestsPerMinute float64) *RateLimited {
	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1)
	}
	return &RateLimited{inner: inner, limiter: limiter}
}

// CreateChatCompletion implements Client.
func (c *RateLimited) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, err
		}
	}
	return c.inner.CreateChatCompletion(ctx, req)
}
