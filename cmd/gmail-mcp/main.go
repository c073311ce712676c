// gmail-mcp is a stdio MCP server exposing email sending through Gmail.
package main

import (
	"context"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conciergebot/concierge/internal/googleauth"
	"github.com/conciergebot/concierge/internal/logger"
	"github.com/conciergebot/concierge/internal/tools/gmailer"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger.SetLevel(envOr("LOG_LEVEL", "info"))

	// Gmail auth is lazy: the OAuth flow only runs when the first email is
	// actually sent.
	var (
		once    sync.Once
		sender  *gmailer.Sender
		initErr error
	)
	getSender := func(ctx context.Context) (*gmailer.Sender, error) {
		once.Do(func() {
			httpClient, err := googleauth.Client(ctx,
				envOr("GMAIL_CREDENTIALS_FILE", "credentials.json"),
				envOr("GMAIL_TOKEN_FILE", "token.json"),
				gmailer.Scopes...)
			if err != nil {
				initErr = err
				return
			}
			sender, initErr = gmailer.NewSender(ctx, httpClient)
		})
		return sender, initErr
	}

	s := server.NewMCPServer("gmail-mcp-server", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("send_email",
		mcp.WithDescription("Send an email via Gmail"),
		mcp.WithString("to", mcp.Required(), mcp.Description("Recipient email address")),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Email subject line")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Email body content")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		to, err := req.RequireString("to")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		subject, err := req.RequireString("subject")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body, err := req.RequireString("body")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		snd, err := getSender(ctx)
		if err != nil {
			logger.L.Error("gmail authentication failed", "error", err)
			return mcp.NewToolResultError("Failed to authenticate with Gmail: " + err.Error()), nil
		}
		id, err := snd.Send(to, subject, body)
		if err != nil {
			return mcp.NewToolResultError("Failed to send email: " + err.Error()), nil
		}
		return mcp.NewToolResultText("Email sent successfully! Message ID: " + id), nil
	})

	if err := server.ServeStdio(s); err != nil {
		logger.L.Error("gmail MCP server stopped", "error", err)
		os.Exit(1)
	}
}
