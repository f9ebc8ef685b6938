package assistant

import (
	"context"
	"encoding/json"
)

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in the conversation. Conversations are
// append-only: a Message is never modified once appended.
type Message struct {
	Role       Role
	Content    string
	Name       string // tool name, set on tool results
	ToolCalls  []ToolCall
	ToolCallID string // Used when Role is Tool to link back to the call
}

// ToolCall represents a request from the LLM to execute a tool
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object, passed through as received
}

// ToolDefinition is the model-facing description of a tool.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ProviderName identifies which adapter served a request. The zero value
// means no provider did.
type ProviderName string

const (
	ProviderLocal ProviderName = "local"
	ProviderCloud ProviderName = "cloud"
)

// MarshalJSON encodes the zero value as null.
func (p ProviderName) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// Response is the provider-agnostic result of one model turn. Failures are
// carried in Error; adapters never return Go errors.
type Response struct {
	Success      bool
	Content      string
	ToolCalls    []ToolCall
	Error        string
	ProviderUsed ProviderName
}

// HasToolCalls reports whether the model asked for tools.
func (r Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Backend is a single chat-completion API. Backends return errors freely;
// the Adapter turns them into Responses.
type Backend interface {
	// Chat sends messages to the LLM and returns the response, potentially including tool calls
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error)
}

// Provider is one interchangeable model backend as seen by the Router.
type Provider interface {
	Name() ProviderName
	Model() string
	// Available is a cheap reachability probe. It never panics.
	Available(ctx context.Context) bool
	// Generate runs one model turn. tools may be nil.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) Response
}

// Generator is what the orchestration loop needs from the Router.
type Generator interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) Response
}
