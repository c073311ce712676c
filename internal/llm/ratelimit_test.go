package llm

import (
	"context"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls int
}

func (c *countingClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	return openai.ChatCompletionResponse{}, nil
}

func TestRateLimited_Disabled(t *testing.T) {
	inner := &countingClient{}
	c := NewRateLimited(inner, 0)

	for i := 0; i < 5; i++ {
		_, err := c.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{})
		require.NoError(t, err)
	}
	require.Equal(t, 5, inner.calls)
}

func TestRateLimited_BlocksSecondRequest(t *testing.T) {
	inner := &countingClient{}
	// 60 rpm = 1 request per second, burst of 1. The second call inside a
	// short deadline must fail waiting for a token.
	c := NewRateLimited(inner, 60)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{})
	require.NoError(t, err)

	_, err = c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls)
}
