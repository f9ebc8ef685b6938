package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/reinhart/lumen/internal/safety"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIBackend speaks the OpenAI chat-completions protocol. It serves both
// the local server (LM Studio, Ollama) and OpenAI-compatible clouds such as
// Groq.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// OpenAIOptions configures an OpenAIBackend.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string
	Timeout time.Duration
}

// NewOpenAIBackend creates a new OpenAI-protocol backend
func NewOpenAIBackend(opts OpenAIOptions) *OpenAIBackend {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultProviderTimeout
	}

	// Create HTTP client with proper timeouts
	httpClient := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	config := openai.DefaultConfig(opts.APIKey)
	config.HTTPClient = httpClient
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(config),
		model:  opts.Model,
	}
}

// Chat sends messages to the LLM and returns the response. There is no retry
// here: recovery belongs to the Router's single fallback hop.
func (p *OpenAIBackend) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: 0.7,
		MaxTokens:   1000,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
		req.ToolChoice = "auto"
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, malformed("no choices in completion")
	}

	msg := resp.Choices[0].Message
	result := &Message{
		Role:    RoleAssistant, // OpenAI responses are always assistant
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" {
			return nil, malformed("tool call without a function name")
		}
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result, nil
}

// ListModels is the local reachability probe: GET {base}/models.
func (p *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	names := make([]string, len(list.Models))
	for i, m := range list.Models {
		names[i] = m.ID
	}
	return names, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleTool:
			role = openai.ChatMessageRoleTool
		}

		var toolCalls []openai.ToolCall
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}

		// Tool results must carry content.
		content := msg.Content
		if role == openai.ChatMessageRoleTool && content == "" {
			content = "{}"
		}

		apiMessages[i] = openai.ChatCompletionMessage{
			Role:       role,
			Content:    content,
			ToolCalls:  toolCalls,
			ToolCallID: msg.ToolCallID,
		}
	}
	return apiMessages
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	apiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		apiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return apiTools
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &safety.ProviderError{
			Kind:   safety.StatusKind(apiErr.HTTPStatusCode),
			Status: apiErr.HTTPStatusCode,
			Err:    err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &safety.ProviderError{
			Kind:   safety.StatusKind(reqErr.HTTPStatusCode),
			Status: reqErr.HTTPStatusCode,
			Err:    err,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &safety.ProviderError{Kind: safety.KindMalformed, Err: err}
	}

	return &safety.ProviderError{Kind: safety.ClassifyTransport(err), Err: err}
}
