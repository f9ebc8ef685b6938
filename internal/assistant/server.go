package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxIterations = 5

	// User-facing texts. None of them carries upstream detail.
	msgProviderTrouble = "I'm having trouble connecting to the AI service. Please try again."
	msgNoResponse      = "I couldn't generate a response."
	msgIterationLimit  = "I couldn't finish looking into that. Please try a more specific question."
)

// StatusUpdate represents a real-time update from the server
type StatusUpdate struct {
	Message   string
	Tool      string // set while a tool runs
	Iteration int
}

// ChatOption customizes a single Chat call.
type ChatOption func(*chatOptions)

type chatOptions struct {
	progress func(StatusUpdate)
}

// WithProgress reports loop progress to fn. fn is called synchronously from
// the Chat goroutine and must not block for long.
func WithProgress(fn func(StatusUpdate)) ChatOption {
	return func(o *chatOptions) { o.progress = fn }
}

// ChatResult is the outcome of one conversational request.
type ChatResult struct {
	Success      bool         `json:"success"`
	Response     string       `json:"response"`
	ToolsUsed    []string     `json:"tools_used"`
	ProviderUsed ProviderName `json:"provider_used"`
	Error        string       `json:"error,omitempty"`
}

// ServerConfig wires a Server.
type ServerConfig struct {
	Generator     Generator
	Registry      *ToolRegistry
	SystemPrompt  string
	MaxIterations int
	Logger        *zap.Logger
}

// Server drives the tool-calling loop. Each Chat call owns its message
// sequence; nothing is kept between calls, so a Server is safe for
// concurrent use.
type Server struct {
	gen           Generator
	registry      *ToolRegistry
	system        string
	maxIterations int
	logger        *zap.Logger
}

// NewServer creates an orchestration server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Registry == nil {
		cfg.Registry = NewToolRegistry(cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		gen:           cfg.Generator,
		registry:      cfg.Registry,
		system:        cfg.SystemPrompt,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
	}
}

// Tools lists the tool definitions offered to the model.
func (s *Server) Tools() []ToolDefinition {
	return s.registry.Definitions()
}

// ExecuteTool runs one tool directly, outside any conversation.
func (s *Server) ExecuteTool(ctx context.Context, name, args string) Result {
	return s.registry.Invoke(ctx, name, args)
}

// Chat answers a natural-language message, calling tools as the model asks.
// The loop ends when the model answers in plain text, when a provider call
// fails, or after MaxIterations rounds of tool calls.
func (s *Server) Chat(ctx context.Context, message string, opts ...ChatOption) ChatResult {
	var o chatOptions
	for _, opt := range opts {
		opt(&o)
	}
	progress := func(u StatusUpdate) {
		if o.progress != nil {
			o.progress(u)
		}
	}

	res := ChatResult{ToolsUsed: []string{}}
	if s.gen == nil {
		res.Response = msgProviderTrouble
		res.Error = ErrNoProvider
		return res
	}

	s.logger.Info("processing message", zap.Int("length", len(message)))

	var messages []Message
	if s.system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: s.system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: message})
	tools := s.registry.Definitions()

	progress(StatusUpdate{Message: "Thinking..."})
	resp, ok := s.generate(ctx, messages, tools, &res)
	if !ok {
		return res
	}

	lastContent := resp.Content
	iteration := 0
	for resp.HasToolCalls() && iteration < s.maxIterations {
		iteration++
		s.logger.Debug("tool round",
			zap.Int("iteration", iteration),
			zap.Int("tool_calls", len(resp.ToolCalls)))

		for i, tc := range resp.ToolCalls {
			if tc.ID == "" {
				tc.ID = "call_" + uuid.NewString()
			}

			call := Message{Role: RoleAssistant, ToolCalls: []ToolCall{tc}}
			if i == 0 {
				call.Content = resp.Content
			}
			messages = append(messages, call)

			progress(StatusUpdate{Message: fmt.Sprintf("Running %s...", tc.Name), Tool: tc.Name, Iteration: iteration})
			result := s.registry.Invoke(ctx, tc.Name, tc.Arguments)
			res.ToolsUsed = append(res.ToolsUsed, tc.Name)

			s.logger.Info("tool call",
				zap.String("tool", tc.Name),
				zap.String("call_id", tc.ID),
				zap.Int("iteration", iteration),
				zap.Bool("success", result.Success))

			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    result.ModelPayload(),
				Name:       tc.Name,
				ToolCallID: tc.ID,
			})
		}

		progress(StatusUpdate{Message: fmt.Sprintf("Thinking (round %d)...", iteration+1), Iteration: iteration})
		resp, ok = s.generate(ctx, messages, tools, &res)
		if !ok {
			return res
		}
		if resp.Content != "" {
			lastContent = resp.Content
		}
	}

	res.Success = true
	switch {
	case resp.HasToolCalls():
		s.logger.Warn("iteration limit reached", zap.Int("iterations", iteration))
		res.Response = lastContent
		if strings.TrimSpace(res.Response) == "" {
			res.Response = msgIterationLimit
		}
	case strings.TrimSpace(resp.Content) == "":
		res.Response = msgNoResponse
	default:
		res.Response = resp.Content
	}

	progress(StatusUpdate{Message: "Done", Iteration: iteration})
	s.logger.Info("chat completed",
		zap.Strings("tools_used", res.ToolsUsed),
		zap.String("provider", string(res.ProviderUsed)))
	return res
}

// generate makes one provider call and records the outcome in res. It
// reports false when the loop must stop.
func (s *Server) generate(ctx context.Context, messages []Message, tools []ToolDefinition, res *ChatResult) (Response, bool) {
	if err := ctx.Err(); err != nil {
		res.Response = msgProviderTrouble
		res.Error = "request cancelled"
		return Response{}, false
	}

	resp := s.gen.Generate(ctx, messages, tools)
	if resp.ProviderUsed != "" || !resp.Success {
		res.ProviderUsed = resp.ProviderUsed
	}
	if !resp.Success {
		s.logger.Warn("provider call failed", zap.String("error", resp.Error))
		res.Response = msgProviderTrouble
		res.Error = resp.Error
		return resp, false
	}
	return resp, true
}
