package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/conciergebot/concierge/internal/config"
	"github.com/conciergebot/concierge/internal/history"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// This mirrors MCPClientInterface in router.go
type mockMCPClient struct {
	InitializeFunc  func(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListToolsFunc   func(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPromptsFunc func(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	GetPromptFunc   func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	CallToolFunc    func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	CloseFunc       func() error
}

func (m *mockMCPClient) Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	if m.InitializeFunc != nil {
		return m.InitializeFunc(ctx, req)
	}
	return &mcp.InitializeResult{}, nil
}

func (m *mockMCPClient) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if m.ListToolsFunc != nil {
		return m.ListToolsFunc(ctx, req)
	}
	return &mcp.ListToolsResult{Tools: []mcp.Tool{}}, nil
}

func (m *mockMCPClient) ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	if m.ListPromptsFunc != nil {
		return m.ListPromptsFunc(ctx, req)
	}
	return &mcp.ListPromptsResult{}, nil
}

func (m *mockMCPClient) GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	if m.GetPromptFunc != nil {
		return m.GetPromptFunc(ctx, req)
	}
	return &mcp.GetPromptResult{}, nil
}

func (m *mockMCPClient) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if m.CallToolFunc != nil {
		return m.CallToolFunc(ctx, request)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "mock default success for " + request.Params.Name}},
	}, nil
}

func (m *mockMCPClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured")
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func newTestAgent(t *testing.T, llmClient *mockLLM) *Agent {
	t.Helper()
	hist := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(func() { hist.Close() })
	return New(llmClient, config.Config{LLM: config.LLMConfig{Model: "gpt"}}, hist)
}

func contentResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant, Content: text,
		}}},
	}
}

func toolCallResponse(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: name, Arguments: args},
			}},
		}}},
	}
}

// TestProcess_LLMRespondsDirectly covers the no-tool path.
func TestProcess_LLMRespondsDirectly(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("Hello, I am a helpful AI.")}}
	a := newTestAgent(t, llmClient)
	require.Empty(t, a.availableLLMTools)

	out, err := a.Process(context.Background(), "sess", "User says hi")
	require.NoError(t, err)
	require.Equal(t, "Hello, I am a helpful AI.", out)

	// First-turn date preamble is applied and both sides are persisted.
	msgs := a.hist.List("sess")
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[0].Content, "Today's date is")
	require.Contains(t, msgs[0].Content, "User says hi")
	require.Equal(t, "Hello, I am a helpful AI.", msgs[1].Content)
}

// TestProcess_ToolCallSuccess covers the full LLM -> tool -> LLM round trip.
func TestProcess_ToolCallSuccess(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("call_123", "get_weather", `{"location": "London"}`),
		contentResponse("Based on the weather tool, it's sunny in London."),
	}}
	a := newTestAgent(t, llmClient)

	mockClient := &mockMCPClient{
		CallToolFunc: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			require.Equal(t, "get_weather", request.Params.Name)
			require.Equal(t, map[string]any{"location": "London"}, request.Params.Arguments)
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "The weather in London is sunny."}},
			}, nil
		},
	}
	require.True(t, a.router.Register("get_weather", mockClient))
	a.availableLLMTools = []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:       "get_weather",
			Parameters: json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`),
		},
	}}

	out, err := a.Process(context.Background(), "sess", "What's the weather in London?")
	require.NoError(t, err)
	require.Equal(t, "Based on the weather tool, it's sunny in London.", out)

	// The follow-up completion carries the tool result message.
	require.Len(t, llmClient.requests, 2)
	second := llmClient.requests[1].Messages
	last := second[len(second)-1]
	require.Equal(t, openai.ChatMessageRoleTool, last.Role)
	require.Equal(t, "call_123", last.ToolCallID)
	require.Equal(t, "The weather in London is sunny.", last.Content)
}

// TestProcess_ToolCallFails verifies a failing tool is reported back to the
// model instead of aborting the turn.
func TestProcess_ToolCallFails(t *testing.T) {
	final := "Sorry, the tool is broken."
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("call_456", "broken_tool", `{}`),
		contentResponse(final),
	}}
	a := newTestAgent(t, llmClient)

	mockClient := &mockMCPClient{
		CallToolFunc: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("MCP tool execution failed badly")
		},
	}
	require.True(t, a.router.Register("broken_tool", mockClient))

	out, err := a.Process(context.Background(), "sess", "Use the broken tool")
	require.NoError(t, err)
	require.Equal(t, final, out)

	second := llmClient.requests[1].Messages
	last := second[len(second)-1]
	require.Equal(t, openai.ChatMessageRoleTool, last.Role)
	require.Contains(t, last.Content, "MCP tool execution failed badly")
}

// TestProcess_UnknownTool verifies the router failure surfaces as a tool
// result, not a crash.
func TestProcess_UnknownTool(t *testing.T) {
	final := "I cannot do that."
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		toolCallResponse("call_789", "no_such_tool", `{}`),
		contentResponse(final),
	}}
	a := newTestAgent(t, llmClient)

	out, err := a.Process(context.Background(), "sess", "Call something unknown")
	require.NoError(t, err)
	require.Equal(t, final, out)

	second := llmClient.requests[1].Messages
	last := second[len(second)-1]
	require.Equal(t, openai.ChatMessageRoleTool, last.Role)
	require.Contains(t, last.Content, "unknown tool")
}

// TestProcess_MaxToolTurns verifies the loop cap: no more than maxToolTurns
// tool-execution rounds run before the turn fails.
func TestProcess_MaxToolTurns(t *testing.T) {
	// The model keeps asking for the same tool forever.
	var calls []openai.ChatCompletionResponse
	for i := 0; i < maxToolTurns; i++ {
		calls = append(calls, toolCallResponse("call_loop", "echo", `{}`))
	}
	llmClient := &mockLLM{calls: calls}
	a := newTestAgent(t, llmClient)

	executions := 0
	require.True(t, a.router.Register("echo", &mockMCPClient{
		CallToolFunc: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			executions++
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "echo"}},
			}, nil
		},
	}))

	_, err := a.Process(context.Background(), "sess", "loop forever")
	require.Error(t, err)
	require.Contains(t, err.Error(), "maximum tool turns")
	require.Equal(t, maxToolTurns, executions)
	// Nothing from the failed turn is persisted.
	require.Empty(t, a.hist.List("sess"))
}

// TestProcess_SecondTurnReplaysHistory verifies session context reaches the
// model on later turns without repeating the date preamble.
func TestProcess_SecondTurnReplaysHistory(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		contentResponse("first answer"),
		contentResponse("second answer"),
	}}
	a := newTestAgent(t, llmClient)

	_, err := a.Process(context.Background(), "sess", "first question")
	require.NoError(t, err)
	_, err = a.Process(context.Background(), "sess", "second question")
	require.NoError(t, err)

	second := llmClient.requests[1].Messages
	// system + first user + first assistant + second user
	require.Len(t, second, 4)
	require.Contains(t, second[1].Content, "first question")
	require.Equal(t, "first answer", second[2].Content)
	require.Equal(t, "second question", second[3].Content)
}

// TestClearSession mirrors the REPL clear command.
func TestClearSession(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{contentResponse("ok")}}
	a := newTestAgent(t, llmClient)

	_, err := a.Process(context.Background(), "sess", "hello")
	require.NoError(t, err)
	require.NotEmpty(t, a.hist.List("sess"))

	a.ClearSession("sess")
	require.Empty(t, a.hist.List("sess"))
}
