// pdf-mcp is a stdio MCP server that loads PDFs into memory and answers
// content, search and metadata queries about them.
package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/conciergebot/concierge/internal/logger"
	"github.com/conciergebot/concierge/internal/tools/pdfdoc"
)

func main() {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logger.SetLevel(lvl)
	}

	store := pdfdoc.NewStore()
	s := server.NewMCPServer("pdf-processor", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("load_pdf",
		mcp.WithDescription("Load a PDF file and extract its text content"),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to the PDF file to load")),
		mcp.WithString("pdf_id", mcp.Description("Unique identifier for this PDF (defaults to the file name)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filePath, err := req.RequireString("file_path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := store.Load(filePath, req.GetString("pdf_id", ""))
		if err != nil {
			return mcp.NewToolResultError("Error loading PDF: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("get_pdf_content",
		mcp.WithDescription("Get the text content from specific pages of a loaded PDF"),
		mcp.WithString("pdf_id", mcp.Required(), mcp.Description("ID of the loaded PDF")),
		mcp.WithString("pages", mcp.Description("Page range to extract: 'all', '5', or '1-10' (default '1-3')")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pdfID, err := req.RequireString("pdf_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := store.Content(pdfID, req.GetString("pages", "1-3"))
		if err != nil {
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("search_pdf",
		mcp.WithDescription("Search a loaded PDF with case-insensitive matching and word context"),
		mcp.WithString("pdf_id", mcp.Required(), mcp.Description("ID of the loaded PDF to search")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("context_words", mcp.Description("Words of context around each match (default 50)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pdfID, err := req.RequireString("pdf_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := store.Search(pdfID, query, req.GetInt("context_words", 50))
		if err != nil {
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("get_pdf_info",
		mcp.WithDescription("Get metadata about a loaded PDF"),
		mcp.WithString("pdf_id", mcp.Required(), mcp.Description("ID of the loaded PDF")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pdfID, err := req.RequireString("pdf_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := store.Info(pdfID)
		if err != nil {
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	s.AddTool(mcp.NewTool("list_loaded_pdfs",
		mcp.WithDescription("List all currently loaded PDFs"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(store.List()), nil
	})

	s.AddTool(mcp.NewTool("extract_page_text",
		mcp.WithDescription("Extract the raw text of one page of a loaded PDF"),
		mcp.WithString("pdf_id", mcp.Required(), mcp.Description("ID of the loaded PDF")),
		mcp.WithNumber("page_number", mcp.Required(), mcp.Description("Page number (1-based)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pdfID, err := req.RequireString("pdf_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		page, err := req.RequireInt("page_number")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := store.ExtractPage(pdfID, page)
		if err != nil {
			return mcp.NewToolResultError("Error: " + err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})

	if err := server.ServeStdio(s); err != nil {
		logger.L.Error("pdf MCP server stopped", "error", err)
		os.Exit(1)
	}
}
