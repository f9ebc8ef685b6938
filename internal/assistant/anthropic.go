package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/reinhart/lumen/internal/safety"
)

var DefaultAnthropicModel = string(anthropic.ModelClaude3Dot5Sonnet20240620)

// AnthropicBackend implements Backend using the Anthropic API
type AnthropicBackend struct {
	client *anthropic.Client
	model  string
}

// AnthropicOptions configures an AnthropicBackend.
type AnthropicOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewAnthropicBackend creates a new Anthropic backend instance
func NewAnthropicBackend(opts AnthropicOptions) *AnthropicBackend {
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
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

	clientOpts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicBackend{
		client: anthropic.NewClient(opts.APIKey, clientOpts...),
		model:  opts.Model,
	}
}

func (p *AnthropicBackend) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	var anthropicMessages []anthropic.Message
	var system []string

	for _, msg := range messages {
		// Anthropic takes the system prompt separately.
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		var content []anthropic.MessageContent
		role := anthropic.RoleUser

		switch msg.Role {
		case RoleTool:
			// Tool results travel as user messages with a tool_result block.
			content = append(content, anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, isErrorPayload(msg.Content)))
		case RoleAssistant:
			role = anthropic.RoleAssistant
			if msg.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Arguments)
				if !json.Valid(input) {
					input = json.RawMessage("{}")
				}
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, input))
			}
		default:
			content = append(content, anthropic.NewTextMessageContent(msg.Content))
		}

		if len(content) == 0 {
			continue
		}
		anthropicMessages = append(anthropicMessages, anthropic.Message{
			Role:    role,
			Content: content,
		})
	}

	var anthropicTools []anthropic.ToolDefinition
	for _, t := range tools {
		anthropicTools = append(anthropicTools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		Messages:  anthropicMessages,
		Tools:     anthropicTools,
		MaxTokens: 1024,
		System:    strings.Join(system, "\n"),
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	result := &Message{
		Role: RoleAssistant,
	}

	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			if content.Text != nil {
				result.Content += *content.Text
			}
		case anthropic.MessagesContentTypeToolUse:
			if content.MessageContentToolUse == nil || content.Name == "" {
				return nil, malformed("tool_use block without a name")
			}
			args, err := json.Marshal(content.Input)
			if err != nil || string(args) == "null" {
				args = []byte("{}")
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: string(args),
			})
		}
	}

	return result, nil
}

// isErrorPayload reports whether a tool message carries {"error": ...}.
func isErrorPayload(content string) bool {
	var v struct {
		Error *string `json:"error"`
	}
	return json.Unmarshal([]byte(content), &v) == nil && v.Error != nil
}

func classifyAnthropicError(err error) error {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		return &safety.ProviderError{
			Kind:   safety.StatusKind(reqErr.StatusCode),
			Status: reqErr.StatusCode,
			Err:    err,
		}
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		kind := safety.KindUnknown
		switch string(apiErr.Type) {
		case "authentication_error", "permission_error":
			kind = safety.KindAuth
		case "rate_limit_error":
			kind = safety.KindRateLimit
		}
		return &safety.ProviderError{Kind: kind, Err: err}
	}

	return &safety.ProviderError{Kind: safety.ClassifyTransport(err), Err: err}
}
