// Package search performs grounded web search through the Gemini
// generateContent API with the google_search tool enabled.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SystemPrompt steers the model toward concise, self-contained summaries;
// the output is consumed by the downstream assistant model, not the user.
const SystemPrompt = "You are a lightweight AI agent designed to perform accurate web searches and retrieve relevant information. Use the Google Search tool to find up-to-date and reliable content. Summarize your findings into concise, factual, and self-contained answers. Your output will be consumed by a downstream model that will generate the final user response, so prioritize brevity, precision, and relevance."

const defaultBaseURL = "https://generativelanguage.googleapis.com"

const defaultModel = "gemini-2.5-flash"

// Client calls the Gemini REST API.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(u) }
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// NewClient creates a search client authenticated by API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(60 * time.Second).
			SetHeader("Content-Type", "application/json"),
		apiKey: apiKey,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Contents          []content       `json:"contents"`
	Tools             []toolSpec      `json:"tools"`
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type toolSpec struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs the query with Google Search grounding and returns the
// generated text.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	body := generateRequest{
		Contents:          []content{{Role: "user", Parts: []part{{Text: query}}}},
		Tools:             []toolSpec{{}},
		SystemInstruction: &content{Parts: []part{{Text: SystemPrompt}}},
		GenerationConfig:  &generateConfig{Temperature: 0},
	}

	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("web search request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("web search: %s (status %d)", out.Error.Message, resp.StatusCode())
		}
		return "", fmt.Errorf("web search: unexpected status %d", resp.StatusCode())
	}

	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("web search: empty response")
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("web search: no text in response")
	}
	return b.String(), nil
}
