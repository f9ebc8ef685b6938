package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/reinhart/lumen/internal/safety"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiBackend implements Backend using Google's Gemini API
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a new Gemini backend instance
func NewGeminiBackend(ctx context.Context, apiKey string, model string) (*GeminiBackend, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{
		client: client,
		model:  model,
	}, nil
}

// Close releases the underlying client.
func (p *GeminiBackend) Close() error {
	return p.client.Close()
}

func (p *GeminiBackend) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	model := p.client.GenerativeModel(p.model)

	decls, err := geminiDeclarations(tools)
	if err != nil {
		return nil, err
	}
	if len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	history, system := toGeminiHistory(messages)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n"))},
		}
	}

	// The last user turn (a question or a function response) is sent; the
	// rest is replayed as history.
	if len(history) == 0 || history[len(history)-1].Role != "user" {
		return nil, fmt.Errorf("gemini: conversation must end with a user turn")
	}
	last := history[len(history)-1]

	cs := model.StartChat()
	cs.History = history[:len(history)-1]

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	return parseGeminiResponse(resp)
}

func toGeminiHistory(messages []Message) (history []*genai.Content, system []string) {
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}

		role := "user"
		var parts []genai.Part

		switch msg.Role {
		case RoleAssistant:
			role = "model"
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				parts = append(parts, genai.FunctionCall{
					Name: tc.Name,
					Args: args,
				})
			}
		case RoleTool:
			var response map[string]any
			// Try to parse JSON, otherwise wrap string
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"result": msg.Content}
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     msg.Name,
				Response: response,
			})
		default:
			parts = append(parts, genai.Text(msg.Content))
		}

		if len(parts) == 0 {
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: parts})
	}
	return history, system
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*Message, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, malformed("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return nil, malformed("candidate without content")
	}

	result := &Message{
		Role: RoleAssistant,
	}

	for _, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			result.Content += string(v)
		case genai.FunctionCall:
			argsBytes, err := json.Marshal(v.Args)
			if err != nil || string(argsBytes) == "null" {
				argsBytes = []byte("{}")
			}
			// Gemini does not assign call ids.
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        "call_" + uuid.NewString(),
				Name:      v.Name,
				Arguments: string(argsBytes),
			})
		}
	}

	return result, nil
}

func geminiDeclarations(tools []ToolDefinition) ([]*genai.FunctionDeclaration, error) {
	var decls []*genai.FunctionDeclaration
	for _, t := range tools {
		var params *genai.Schema
		if len(t.Parameters) > 0 {
			var js jsonSchema
			if err := json.Unmarshal(t.Parameters, &js); err != nil {
				return nil, fmt.Errorf("tool %s: parse parameter schema: %w", t.Name, err)
			}
			params = js.toGenai()
			// Gemini rejects an object schema without properties.
			if params.Type == genai.TypeObject && len(params.Properties) == 0 {
				params = nil
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return decls, nil
}

// jsonSchema is the subset of JSON Schema the tool parameter schemas use.
type jsonSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Enum        []string               `json:"enum"`
	Format      string                 `json:"format"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Required    []string               `json:"required"`
	Items       *jsonSchema            `json:"items"`
}

func (s *jsonSchema) toGenai() *genai.Schema {
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Format:      s.Format,
		Required:    s.Required,
	}

	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}

	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			if prop != nil {
				out.Properties[name] = prop.toGenai()
			}
		}
	}
	if s.Items != nil {
		out.Items = s.Items.toGenai()
	}
	return out
}

func classifyGeminiError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &safety.ProviderError{
			Kind:   safety.StatusKind(gErr.Code),
			Status: gErr.Code,
			Err:    err,
		}
	}
	return &safety.ProviderError{Kind: safety.ClassifyTransport(err), Err: err}
}
