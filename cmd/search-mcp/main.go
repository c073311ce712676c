// search-mcp is a stdio MCP server performing grounded web search through
// the Gemini API. It also advertises a prompt describing how its output
// should be used, which the client aggregates into the system prompt.
package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conciergebot/concierge/internal/logger"
	"github.com/conciergebot/concierge/internal/tools/search"
)

func main() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logger.SetLevel(lvl)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.L.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}
	client := search.NewClient(apiKey, search.WithModel(os.Getenv("GEMINI_MODEL")))

	s := server.NewMCPServer("gemini-search", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
	)

	s.AddTool(mcp.NewTool("web_search",
		mcp.WithDescription("Perform a web search and return a grounded, summarized answer"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query or question to answer")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := client.Search(ctx, query)
		if err != nil {
			return mcp.NewToolResultError("Error performing web search: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddPrompt(mcp.NewPrompt("web_search_usage",
		mcp.WithPromptDescription("Guidance on when to reach for web search"),
	), func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult("Web search usage", []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(
				"The web_search tool returns concise, grounded summaries from a live web search. Use it for current events, prices, schedules and anything that may have changed recently; quote its findings rather than guessing.")),
		}), nil
	})

	if err := server.ServeStdio(s); err != nil {
		logger.L.Error("search MCP server stopped", "error", err)
		os.Exit(1)
	}
}
