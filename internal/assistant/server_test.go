package assistant

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGenerator replays responses in order and records what it was sent.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []Response
	repeat    bool // keep returning the last response
	calls     [][]Message
}

func (g *scriptedGenerator) Generate(_ context.Context, messages []Message, _ []ToolDefinition) Response {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, append([]Message(nil), messages...))
	i := len(g.calls) - 1
	if i >= len(g.responses) {
		if !g.repeat {
			return Response{Error: "script exhausted"}
		}
		i = len(g.responses) - 1
	}
	return g.responses[i]
}

func toolTurn(provider ProviderName, calls ...ToolCall) Response {
	return Response{Success: true, ToolCalls: calls, ProviderUsed: provider}
}

func textTurn(provider ProviderName, content string) Response {
	return Response{Success: true, Content: content, ProviderUsed: provider}
}

func newTestServer(gen Generator) *Server {
	return NewServer(ServerConfig{
		Generator:    gen,
		Registry:     financeRegistry(fixture()),
		SystemPrompt: SystemPrompt,
	})
}

func TestServer_DiningScenario(t *testing.T) {
	gen := &scriptedGenerator{responses: []Response{
		toolTurn(ProviderLocal, ToolCall{ID: "call_1", Name: ToolTopCategories, Arguments: `{"days":30}`}),
		textTurn(ProviderCloud, "You spent ₹1,000.50 on Dining in the last 30 days."),
	}}
	srv := newTestServer(gen)

	res := srv.Chat(context.Background(), "What did I spend on Dining in the last 30 days?")

	assert.True(t, res.Success)
	assert.Equal(t, []string{ToolTopCategories}, res.ToolsUsed)
	assert.Equal(t, ProviderCloud, res.ProviderUsed)
	assert.Equal(t, "You spent ₹1,000.50 on Dining in the last 30 days.", res.Response)
	assert.Empty(t, res.Error)

	require.Len(t, gen.calls, 2)
	second := gen.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleSystem, second[0].Role)
	assert.Equal(t, RoleUser, second[1].Role)
	assert.Equal(t, RoleAssistant, second[2].Role)
	assert.Equal(t, "call_1", second[2].ToolCalls[0].ID)
	assert.Equal(t, RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)

	var payload TopCategories
	require.NoError(t, json.Unmarshal([]byte(second[3].Content), &payload))
	assert.Equal(t, "Last 30 days", payload.Period)
}

func TestServer_ToolMessagesFollowCallOrder(t *testing.T) {
	gen := &scriptedGenerator{responses: []Response{
		toolTurn(ProviderLocal,
			ToolCall{ID: "a", Name: ToolMonthlySummary, Arguments: `{}`},
			ToolCall{ID: "b", Name: "no_such_tool", Arguments: `{}`},
			ToolCall{ID: "c", Name: ToolRecent, Arguments: `{"limit": `},
		),
		textTurn(ProviderLocal, "done"),
	}}
	res := newTestServer(gen).Chat(context.Background(), "hi")

	require.True(t, res.Success)
	assert.Equal(t, []string{ToolMonthlySummary, "no_such_tool", ToolRecent}, res.ToolsUsed)

	msgs := gen.calls[1][2:]
	require.Len(t, msgs, 6)
	for i, id := range []string{"a", "b", "c"} {
		call, result := msgs[2*i], msgs[2*i+1]
		assert.Equal(t, RoleAssistant, call.Role)
		require.Len(t, call.ToolCalls, 1)
		assert.Equal(t, id, call.ToolCalls[0].ID)
		assert.Equal(t, RoleTool, result.Role)
		assert.Equal(t, id, result.ToolCallID)
	}
	assert.Contains(t, msgs[3].Content, `"error":"unknown tool: no_such_tool`)
	assert.Contains(t, msgs[5].Content, `"error":"invalid arguments for recent_transactions`)
}

func TestServer_IterationCap(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []Response{toolTurn(ProviderLocal, ToolCall{Name: ToolRecent, Arguments: `{}`})},
		repeat:    true,
	}
	res := newTestServer(gen).Chat(context.Background(), "loop forever")

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Response)
	assert.Len(t, res.ToolsUsed, DefaultMaxIterations)
	assert.Len(t, gen.calls, DefaultMaxIterations+1)

	// Missing call ids are filled in and stay paired.
	last := gen.calls[len(gen.calls)-1]
	call, result := last[len(last)-2], last[len(last)-1]
	assert.NotEmpty(t, call.ToolCalls[0].ID)
	assert.Equal(t, call.ToolCalls[0].ID, result.ToolCallID)
}

func TestServer_IterationCapKeepsLastText(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []Response{{
			Success:      true,
			Content:      "Still checking...",
			ToolCalls:    []ToolCall{{ID: "x", Name: ToolAnomalies, Arguments: `{}`}},
			ProviderUsed: ProviderLocal,
		}},
		repeat: true,
	}
	srv := NewServer(ServerConfig{Generator: gen, Registry: financeRegistry(nil), MaxIterations: 2})

	res := srv.Chat(context.Background(), "anything odd?")
	assert.True(t, res.Success)
	assert.Equal(t, "Still checking...", res.Response)
	assert.Len(t, res.ToolsUsed, 2)
}

func TestServer_ProviderFailure(t *testing.T) {
	t.Run("first call", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []Response{{Error: ErrNoProvider}}}
		res := newTestServer(gen).Chat(context.Background(), "hi")

		assert.False(t, res.Success)
		assert.Equal(t, "I'm having trouble connecting to the AI service. Please try again.", res.Response)
		assert.Equal(t, ErrNoProvider, res.Error)
		assert.Empty(t, res.ToolsUsed)
		assert.NotNil(t, res.ToolsUsed)
		assert.Empty(t, res.ProviderUsed)
	})

	t.Run("mid loop", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []Response{
			toolTurn(ProviderLocal, ToolCall{ID: "1", Name: ToolRecent, Arguments: `{}`}),
			{Error: "local request timed out", ProviderUsed: ProviderLocal},
		}}
		res := newTestServer(gen).Chat(context.Background(), "hi")

		assert.False(t, res.Success)
		assert.Equal(t, "local request timed out", res.Error)
		assert.Equal(t, []string{ToolRecent}, res.ToolsUsed)
		assert.Equal(t, ProviderLocal, res.ProviderUsed)
	})
}

func TestServer_EmptyAnswer(t *testing.T) {
	gen := &scriptedGenerator{responses: []Response{textTurn(ProviderCloud, "  ")}}
	res := newTestServer(gen).Chat(context.Background(), "hi")

	assert.True(t, res.Success)
	assert.Equal(t, "I couldn't generate a response.", res.Response)
}

func TestServer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGenerator{responses: []Response{textTurn(ProviderLocal, "never")}}
	res := newTestServer(gen).Chat(ctx, "hi")

	assert.False(t, res.Success)
	assert.Empty(t, gen.calls)
}

func TestServer_Progress(t *testing.T) {
	gen := &scriptedGenerator{responses: []Response{
		toolTurn(ProviderLocal, ToolCall{ID: "1", Name: ToolRecent, Arguments: `{}`}),
		textTurn(ProviderLocal, "ok"),
	}}

	var updates []StatusUpdate
	newTestServer(gen).Chat(context.Background(), "hi", WithProgress(func(u StatusUpdate) {
		updates = append(updates, u)
	}))

	require.NotEmpty(t, updates)
	assert.Equal(t, "Done", updates[len(updates)-1].Message)

	var tools []string
	for _, u := range updates {
		if u.Tool != "" {
			tools = append(tools, u.Tool)
		}
	}
	assert.Equal(t, []string{ToolRecent}, tools)
}

func TestServer_ConcurrentChats(t *testing.T) {
	srv := newTestServer(&scriptedGenerator{responses: []Response{textTurn(ProviderLocal, "hello")}, repeat: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := srv.Chat(context.Background(), "hi")
			assert.True(t, res.Success)
			assert.Equal(t, "hello", res.Response)
		}()
	}
	wg.Wait()
}

func TestChatResult_JSON(t *testing.T) {
	b, err := json.Marshal(ChatResult{Response: "x", ToolsUsed: []string{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"response":"x","tools_used":[],"provider_used":null}`, string(b))
}
