package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/conciergebot/concierge/internal/config"
	"github.com/conciergebot/concierge/internal/history"
	"github.com/conciergebot/concierge/internal/llm"
	"github.com/conciergebot/concierge/internal/logger"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"
)

// FSM states for a single conversation turn.
type FSMState stateless.State

var (
	StateReadyToCallLLM FSMState = "ReadyToCallLLM"
	StateExecutingTools FSMState = "ExecutingTools"
	StateDone           FSMState = "Done"
	StateError          FSMState = "Error"
)

// FSM triggers.
type FSMTrigger stateless.Trigger

var (
	TriggerProcessInput            FSMTrigger = "ProcessInput"
	TriggerLLMRespondedWithContent FSMTrigger = "LLMRespondedWithContent"
	TriggerLLMRequestedTools       FSMTrigger = "LLMRequestedTools"
	TriggerToolsExecutionCompleted FSMTrigger = "ToolsExecutionCompleted"
	TriggerErrorOccurred           FSMTrigger = "ErrorOccurred"
)

const defaultSystemPrompt = "You are a helpful personal assistant. If you are uncertain, ask for clarification from the user. If you do not know the answer and it can be found online, consider searching for the information online using the tools available."

// maxToolTurns caps the LLM -> tools -> LLM cycles within one user turn.
const maxToolTurns = 10

// Agent owns the MCP client connections and runs the conversation engine.
type Agent struct {
	llmClient         llm.Client
	cfg               config.LLMConfig
	mcpClients        []MCPClientInterface
	availableLLMTools []openai.Tool
	serverPrompts     []string // system prompts discovered from MCP servers
	router            *Router
	hist              *history.Store
	now               func() time.Time
}

// New creates an agent and connects to every configured MCP server. Servers
// that fail to connect are logged and skipped; the agent remains usable with
// whatever subset came up.
func New(llmClient llm.Client, appCfg config.Config, hist *history.Store) *Agent {
	a := &Agent{
		llmClient:         llmClient,
		cfg:               appCfg.LLM,
		mcpClients:        make([]MCPClientInterface, 0, len(appCfg.MCPServers)),
		availableLLMTools: make([]openai.Tool, 0),
		serverPrompts:     make([]string, 0),
		router:            NewRouter(),
		hist:              hist,
		now:               time.Now,
	}

	ctx := context.Background()

	for _, serverCfg := range appCfg.MCPServers {
		mcpC, err := newMCPClient(serverCfg)
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}
		if mcpC == nil {
			continue // unsupported type, already logged
		}

		// Stdio transports are started by the constructor.
		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(ctx); err != nil {
				logger.L.Error("failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				closeQuietly(mcpC)
				continue
			}
		}

		initResult, err := mcpC.Initialize(ctx, mcp.InitializeRequest{
			Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
		})
		if err != nil {
			logger.L.Error("failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			closeQuietly(mcpC)
			continue
		}
		logger.L.Info("server initialized", "name", serverCfg.Name)
		a.mcpClients = append(a.mcpClients, mcpC)

		if initResult != nil && initResult.Capabilities.Prompts != nil {
			if p := discoverServerPrompt(ctx, mcpC, serverCfg.Name); p != "" {
				a.serverPrompts = append(a.serverPrompts, p)
				logger.L.Info("discovered system prompt from MCP server", "name", serverCfg.Name)
			}
		}

		a.registerServerTools(ctx, mcpC, serverCfg.Name)
	}

	if len(a.mcpClients) == 0 && len(appCfg.MCPServers) > 0 {
		logger.L.Warn("no MCP clients were successfully initialized despite servers configured", "configured", len(appCfg.MCPServers))
	}

	return a
}

// newMCPClient builds the transport-appropriate client for one server entry.
// A nil client with nil error means the entry was skipped.
func newMCPClient(serverCfg config.MCPServerConfig) (*client.Client, error) {
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		return client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		return client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	default:
		logger.L.Warn("unsupported MCP server type; skipping entry. Supported types are 'sse', 'streamable_http' or 'stdio'.",
			"type", serverCfg.Type, "name", serverCfg.Name)
		return nil, nil
	}
}

// discoverServerPrompt fetches the first argument-free prompt a server offers
// and returns the text of its assistant message, if any.
func discoverServerPrompt(ctx context.Context, c MCPClientInterface, serverName string) string {
	prompts, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		logger.L.Warn("failed to list prompts", "name", serverName, "error", err)
		return ""
	}

	i := slices.IndexFunc(prompts.Prompts, func(p mcp.Prompt) bool {
		return len(p.Arguments) == 0
	})
	if i == -1 {
		return ""
	}

	result, err := c.GetPrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{Name: prompts.Prompts[i].Name},
	})
	if err != nil {
		logger.L.Warn("failed to get prompt", "name", serverName, "error", err)
		return ""
	}

	j := slices.IndexFunc(result.Messages, func(m mcp.PromptMessage) bool {
		return m.Role == mcp.RoleAssistant
	})
	if j == -1 {
		return ""
	}
	if content, ok := result.Messages[j].Content.(mcp.TextContent); ok {
		return content.Text
	}
	return ""
}

// registerServerTools lists a server's tools and registers each unseen name
// with the router and the LLM tool list.
func (a *Agent) registerServerTools(ctx context.Context, c MCPClientInterface, serverName string) {
	serverTools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		logger.L.Warn("failed to list tools for MCP client", "name", serverName, "error", err)
		return
	}
	if serverTools == nil {
		return
	}

	for _, mcpTool := range serverTools.Tools {
		if !a.router.Register(mcpTool.Name, c) {
			logger.L.Warn("tool already registered from another server; skipping", "tool", mcpTool.Name, "name", serverName)
			continue
		}
		a.availableLLMTools = append(a.availableLLMTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        mcpTool.Name,
				Description: mcpTool.Description,
				Parameters:  toolParamsSchema(mcpTool),
			},
		})
		logger.L.Info("registered tool from MCP server", "tool", mcpTool.Name, "name", serverName)
	}
}

// toolParamsSchema normalizes a tool's input schema for the LLM: missing or
// empty schemas become an empty object schema.
func toolParamsSchema(t mcp.Tool) json.RawMessage {
	emptySchema := json.RawMessage(`{"type": "object", "properties": {}}`)

	if len(t.RawInputSchema) > 0 && string(t.RawInputSchema) != "null" {
		return t.RawInputSchema
	}
	schemaBytes, err := json.Marshal(t.InputSchema)
	if err != nil {
		logger.L.Error("failed to marshal input schema for tool; using empty schema", "tool", t.Name, "error", err)
		return emptySchema
	}
	if s := string(schemaBytes); s == "{}" || s == "null" {
		return emptySchema
	}
	return schemaBytes
}

// systemPrompt aggregates the configured (or default) base prompt with the
// prompts discovered from MCP servers.
func (a *Agent) systemPrompt() string {
	base := defaultSystemPrompt
	if a.cfg.SystemPrompt != "" {
		base = a.cfg.SystemPrompt
	}

	var b strings.Builder
	b.WriteString(base)
	for _, p := range a.serverPrompts {
		b.WriteString("\n\n")
		b.WriteString(p)
	}
	return b.String()
}

// ClearSession removes the persisted history of a session.
func (a *Agent) ClearSession(sessionID string) {
	a.hist.Clear(sessionID)
}

// Close shuts down all MCP client connections.
func (a *Agent) Close() {
	for _, c := range a.mcpClients {
		closeQuietly(c)
	}
}

func closeQuietly(c MCPClientInterface) {
	if err := c.Close(); err != nil {
		logger.L.Warn("MCP client close error", "error", err)
	}
}

// Process resolves one user turn: prior session history plus the new input go
// to the LLM, requested tools are executed via MCP, and the loop repeats until
// the model answers with content. A finite state machine keeps the turn's
// phases explicit. The user input and final answer are persisted.
func (a *Agent) Process(ctx context.Context, sessionID, request string) (string, error) {
	type turnContext struct {
		messages     []openai.ChatCompletionMessage
		llmResponse  *openai.ChatCompletionResponse
		finalContent string
		lastError    error
		toolTurns    int
	}

	prior := a.hist.List(sessionID)

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt(),
	}}
	for _, m := range prior {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// Anchor the model in time on the first turn of a session.
	userContent := request
	if len(prior) == 0 {
		userContent = fmt.Sprintf("Today's date is %s.\n\n%s", a.now().Format("2006-01-02"), request)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userContent})

	tc := &turnContext{messages: messages}
	fsm := stateless.NewStateMachine(StateReadyToCallLLM)

	// ReadyToCallLLM: send the accumulated messages to the model. The
	// initial TriggerProcessInput re-entry fires OnEntry for the first call;
	// later entries come from completed tool executions.
	fsm.Configure(StateReadyToCallLLM).
		PermitReentry(TriggerProcessInput).
		OnEntry(func(ctx context.Context, args ...any) error {
			if tc.toolTurns >= maxToolTurns {
				logger.L.Warn("max tool turns reached", "maxToolTurns", maxToolTurns)
				tc.lastError = errors.New("exceeded maximum tool turns")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}

			resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:    a.cfg.Model,
				Messages: tc.messages,
				Tools:    a.availableLLMTools,
			})
			if err != nil {
				logger.L.Error("LLM call failed", "error", err)
				tc.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			tc.llmResponse = &resp

			if len(resp.Choices) > 0 && len(resp.Choices[0].Message.ToolCalls) > 0 {
				return fsm.FireCtx(ctx, TriggerLLMRequestedTools)
			}
			return fsm.FireCtx(ctx, TriggerLLMRespondedWithContent)
		}).
		Permit(TriggerLLMRequestedTools, StateExecutingTools).
		Permit(TriggerLLMRespondedWithContent, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	// ExecutingTools: run each requested tool through the router and append
	// the results as tool messages.
	fsm.Configure(StateExecutingTools).
		OnEntry(func(ctx context.Context, args ...any) error {
			if tc.llmResponse == nil || len(tc.llmResponse.Choices) == 0 {
				tc.lastError = errors.New("cannot execute tools, no LLM response available")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			tc.toolTurns++

			llmMessage := tc.llmResponse.Choices[0].Message
			tc.messages = append(tc.messages, llmMessage)

			for _, toolCall := range llmMessage.ToolCalls {
				tc.messages = append(tc.messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    a.executeToolCall(ctx, toolCall),
					ToolCallID: toolCall.ID,
					Name:       toolCall.Function.Name,
				})
			}
			return fsm.FireCtx(ctx, TriggerToolsExecutionCompleted)
		}).
		Permit(TriggerToolsExecutionCompleted, StateReadyToCallLLM).
		Permit(TriggerErrorOccurred, StateError)

	// Done: capture the final assistant content. Terminal.
	fsm.Configure(StateDone).
		OnEntry(func(ctx context.Context, args ...any) error {
			if tc.llmResponse != nil && len(tc.llmResponse.Choices) > 0 {
				tc.finalContent = tc.llmResponse.Choices[0].Message.Content
			} else if tc.lastError == nil {
				tc.lastError = errors.New("turn finished without a final LLM response")
			}
			return nil
		})

	// Error: terminal, the cause is in tc.lastError.
	fsm.Configure(StateError).
		OnEntry(func(ctx context.Context, args ...any) error {
			if tc.lastError == nil {
				tc.lastError = errors.New("turn reached error state without a specific error")
			}
			return nil
		})

	// Kick the machine into its first LLM call; every later transition fires
	// from within the state callbacks until a terminal state is reached.
	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		logger.L.Error("FSM initial fire failed", "error", err)
		if tc.lastError != nil {
			return "", tc.lastError
		}
		return "", fmt.Errorf("state machine start: %w", err)
	}

	currentState, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("state machine internal error: %w", err)
	}

	switch currentState {
	case StateDone:
		if tc.lastError != nil && tc.finalContent == "" {
			return "", tc.lastError
		}
		a.hist.Append(sessionID, openai.ChatMessageRoleUser, userContent)
		a.hist.Append(sessionID, openai.ChatMessageRoleAssistant, tc.finalContent)
		return tc.finalContent, nil
	case StateError:
		if tc.lastError != nil {
			return "", tc.lastError
		}
		return "", errors.New("turn ended in error state without a specific error")
	default:
		if tc.lastError != nil {
			return "", tc.lastError
		}
		return "", fmt.Errorf("turn ended in an unexpected state: %v", currentState)
	}
}

// executeToolCall parses the model-supplied arguments, routes the call to the
// owning MCP client and renders the result as tool-message text. Failures are
// reported back to the model rather than aborting the turn.
func (a *Agent) executeToolCall(ctx context.Context, toolCall openai.ToolCall) string {
	name := toolCall.Function.Name

	mcpClient, err := a.router.Lookup(name)
	if err != nil {
		logger.L.Warn("tool routing failed", "tool", name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}

	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &toolArgs); err != nil {
		logger.L.Error("failed to unmarshal tool arguments", "tool", name, "error", err)
		return "Error: could not parse arguments for tool " + name
	}

	logger.L.Debug("calling MCP tool", "tool", name, "arguments", toolArgs)
	result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: toolArgs},
	})
	if err != nil {
		logger.L.Warn("MCP CallTool failed", "tool", name, "error", err)
		return fmt.Sprintf("Error: tool %s failed: %v", name, err)
	}
	if result == nil {
		return fmt.Sprintf("Error: tool %s returned no result", name)
	}

	text := firstTextContent(result.Content)
	if result.IsError {
		logger.L.Warn("MCP tool executed with IsError=true", "tool", name, "content", text)
		if text == "" {
			text = "Tool execution resulted in an error without specific text."
		}
		return text
	}
	if text == "" {
		resultBytes, merr := json.Marshal(result)
		if merr != nil {
			return "Tool executed successfully, but result could not be formatted."
		}
		text = string(resultBytes)
	}
	logger.L.Info("tool executed", "tool", name, "resultChars", len(text))
	return text
}

func firstTextContent(contents []mcp.Content) string {
	for _, c := range contents {
		if textContent, ok := c.(mcp.TextContent); ok {
			return textContent.Text
		}
	}
	return ""
}
