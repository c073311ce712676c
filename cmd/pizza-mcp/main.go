// pizza-mcp is a stdio MCP server for ordering pizza delivery. Address,
// contact and payment details come from the secure user profile on disk;
// the model only ever sees item codes, names and totals.
package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conciergebot/concierge/internal/logger"
	"github.com/conciergebot/concierge/internal/tools/pizza"
	"github.com/conciergebot/concierge/internal/userdata"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger.SetLevel(envOr("LOG_LEVEL", "info"))

	profile, err := userdata.Load(envOr("SECURE_USER_DATA_FILE", "secure_user_data.json"))
	if err != nil {
		logger.L.Error("cannot start pizza server", "error", err)
		os.Exit(1)
	}
	svc := pizza.NewService(pizza.NewClient(os.Getenv("PIZZA_API_BASE_URL")), profile)

	s := server.NewMCPServer("pizza-ordering", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("find_nearest_store",
		mcp.WithDescription("Find the nearest pizza store that delivers to the user's saved address"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := svc.FindNearestStore(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("get_menu",
		mcp.WithDescription("List the store menu, optionally filtered by category (e.g. pizza, wings, drinks)"),
		mcp.WithString("category", mcp.Description("Category filter")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := svc.GetMenu(ctx, req.GetString("category", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("search_menu",
		mcp.WithDescription("Search the store menu by item name"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term, e.g. 'pepperoni'")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := svc.SearchMenu(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("add_to_order",
		mcp.WithDescription("Add a menu item to the current order"),
		mcp.WithString("item_code", mcp.Required(), mcp.Description("Menu item code, e.g. '14SCREEN'")),
		mcp.WithNumber("quantity", mcp.Description("Quantity (default 1)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("item_code")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := svc.AddToOrder(ctx, code, req.GetInt("quantity", 1))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("view_order",
		mcp.WithDescription("Show the current order"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(svc.ViewOrder()), nil
	})

	s.AddTool(mcp.NewTool("clear_order",
		mcp.WithDescription("Remove all items and coupons from the current order"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(svc.ClearOrder()), nil
	})

	s.AddTool(mcp.NewTool("apply_coupon",
		mcp.WithDescription("Apply a coupon code to the current order"),
		mcp.WithString("coupon_code", mcp.Required(), mcp.Description("Coupon code to validate and apply")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("coupon_code")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := svc.ApplyCoupon(ctx, code)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("calculate_order_total",
		mcp.WithDescription("Price the current order including tax and delivery"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := svc.CalculateTotal(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("place_order",
		mcp.WithDescription("Place the current order for delivery and charge the saved card. Requires explicit user confirmation."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true; set only after the user explicitly approved the purchase")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		confirm, err := req.RequireBool("confirm")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := svc.PlaceOrder(ctx, confirm)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	if err := server.ServeStdio(s); err != nil {
		logger.L.Error("pizza MCP server stopped", "error", err)
		os.Exit(1)
	}
}
