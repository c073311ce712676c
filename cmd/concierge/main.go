// concierge is the conversational front end: an interactive chat REPL by
// default, or an HTTP inference endpoint with -serve.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/conciergebot/concierge/internal/agent"
	"github.com/conciergebot/concierge/internal/config"
	"github.com/conciergebot/concierge/internal/history"
	"github.com/conciergebot/concierge/internal/llm"
	"github.com/conciergebot/concierge/internal/logger"
)

func main() {
	serve := flag.Bool("serve", false, "run as an HTTP server instead of the interactive REPL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Log.Level)
	if logFile, err := logger.SetFile(cfg.Log.File); err != nil {
		logger.L.Error("failed to open log file", "path", cfg.Log.File, "error", err)
		os.Exit(1)
	} else if logFile != nil {
		defer logFile.Close()
	}

	hist := history.NewStore(cfg.History.DBPath)
	defer hist.Close()

	llmClient := llm.NewClient(cfg.LLM)

	a := agent.New(llmClient, *cfg, hist)
	defer a.Close()

	if *serve {
		runServer(a, cfg.Server)
		return
	}
	runREPL(a)
}

// runREPL reads chat turns from stdin until quit. clear wipes the persisted
// history and rotates the session.
func runREPL(a *agent.Agent) {
	sessionID := uuid.NewString()

	fmt.Println("MCP Chatbot Started!")
	fmt.Println("Type your queries, 'clear' to reset history, or 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\nQuery: ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(query) {
		case "":
			continue
		case "quit":
			return
		case "clear":
			a.ClearSession(sessionID)
			sessionID = uuid.NewString()
			fmt.Println("Conversation history cleared.")
			continue
		}

		response, err := a.Process(context.Background(), sessionID, query)
		if err != nil {
			fmt.Printf("\nError: %v\n", err)
			continue
		}
		fmt.Println(response)
	}
}

// runServer exposes the agent over HTTP: the request body is the user turn,
// the response body the answer. The X-Session-ID header groups turns into a
// conversation; without it every request is its own session.
func runServer(a *agent.Agent, serverCfg config.ServerConfig) {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.L.Error("read body error", "err", err)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		logger.L.Info("inference request", "session", sessionID, "body", string(body))

		response, err := a.Process(r.Context(), sessionID, string(body))
		if err != nil {
			logger.L.Error("process error", "err", err, "session", sessionID)
			http.Error(w, "failed to process request", http.StatusInternalServerError)
			return
		}

		w.Write([]byte(response))
	})

	serverAddr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	logger.L.Info("starting server", "address", serverAddr)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		logger.L.Error("failed to start server", "error", err)
	}
}
