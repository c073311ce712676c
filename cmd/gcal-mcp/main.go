// gcal-mcp is a stdio MCP server for Google Calendar: scheduling meetings,
// listing upcoming events and finding free time.
package main

import (
	"context"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conciergebot/concierge/internal/googleauth"
	"github.com/conciergebot/concierge/internal/logger"
	"github.com/conciergebot/concierge/internal/tools/gcal"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger.SetLevel(envOr("LOG_LEVEL", "info"))

	var (
		once    sync.Once
		planner *gcal.Planner
		initErr error
	)
	getPlanner := func(ctx context.Context) (*gcal.Planner, error) {
		once.Do(func() {
			httpClient, err := googleauth.Client(ctx,
				envOr("CALENDAR_CREDENTIALS_FILE", "credentials.json"),
				envOr("CALENDAR_TOKEN_FILE", "calendar_token.json"),
				gcal.Scopes...)
			if err != nil {
				initErr = err
				return
			}
			planner, initErr = gcal.NewPlanner(ctx, httpClient)
		})
		return planner, initErr
	}

	s := server.NewMCPServer("google-calendar-server", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("schedule_meeting",
		mcp.WithDescription("Schedule a meeting on the user's primary Google Calendar"),
		mcp.WithString("title", mcp.Required(), mcp.Description("Meeting title")),
		mcp.WithString("start_datetime", mcp.Required(), mcp.Description("Start time (RFC 3339 or YYYY-MM-DDTHH:MM:SS local time)")),
		mcp.WithString("end_datetime", mcp.Required(), mcp.Description("End time (RFC 3339 or YYYY-MM-DDTHH:MM:SS local time)")),
		mcp.WithArray("attendees", mcp.Description("Attendee email addresses"), mcp.WithStringItems()),
		mcp.WithString("description", mcp.Description("Meeting description")),
		mcp.WithString("location", mcp.Description("Meeting location")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		title, err := req.RequireString("title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		start, err := req.RequireString("start_datetime")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := req.RequireString("end_datetime")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		p, err := getPlanner(ctx)
		if err != nil {
			return mcp.NewToolResultError("Failed to authenticate with Google Calendar: " + err.Error()), nil
		}
		out, err := p.Schedule(gcal.Meeting{
			Title:       title,
			Start:       start,
			End:         end,
			Attendees:   req.GetStringSlice("attendees", nil),
			Description: req.GetString("description", ""),
			Location:    req.GetString("location", ""),
		})
		if err != nil {
			return mcp.NewToolResultError("Error scheduling meeting: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("list_upcoming_events",
		mcp.WithDescription("List upcoming events from the user's primary calendar"),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of events to return (default 10)")),
		mcp.WithNumber("days_ahead", mcp.Description("How many days ahead to look (default 7)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := getPlanner(ctx)
		if err != nil {
			return mcp.NewToolResultError("Failed to authenticate with Google Calendar: " + err.Error()), nil
		}
		out, err := p.ListUpcoming(int64(req.GetInt("max_results", 10)), int64(req.GetInt("days_ahead", 7)))
		if err != nil {
			return mcp.NewToolResultError("Error listing events: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("find_free_time",
		mcp.WithDescription("Find free time slots on a given date within working hours"),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date to check (YYYY-MM-DD)")),
		mcp.WithNumber("duration_minutes", mcp.Description("Minimum slot length in minutes (default 60)")),
		mcp.WithNumber("start_hour", mcp.Description("Working day start hour (default 9)")),
		mcp.WithNumber("end_hour", mcp.Description("Working day end hour (default 17)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		date, err := req.RequireString("date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		p, err := getPlanner(ctx)
		if err != nil {
			return mcp.NewToolResultError("Failed to authenticate with Google Calendar: " + err.Error()), nil
		}
		out, err := p.FindFreeTime(date,
			req.GetInt("duration_minutes", 60),
			req.GetInt("start_hour", 9),
			req.GetInt("end_hour", 17))
		if err != nil {
			return mcp.NewToolResultError("Error finding free time: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	if err := server.ServeStdio(s); err != nil {
		logger.L.Error("calendar MCP server stopped", "error", err)
		os.Exit(1)
	}
}
