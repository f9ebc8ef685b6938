package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/reinhart/lumen/internal/safety"
	"go.uber.org/zap"
)

// ErrInvalidArguments matches every ArgumentError.
var ErrInvalidArguments = errors.New("invalid arguments")

// ArgumentError reports arguments that do not fit a tool's parameters. It is
// safe to show to the model, which may correct itself.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return "invalid arguments: " + e.Reason }

func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }

func invalidArgs(format string, v ...any) error {
	return &ArgumentError{Reason: fmt.Sprintf(format, v...)}
}

// ToolSpec is one entry of the tool catalogue. The set of implementations is
// closed: tools are built with NewTool.
type ToolSpec interface {
	Definition() ToolDefinition
	call(ctx context.Context, args string) (any, error)
}

// Tool is a typed tool: A is the argument struct the JSON arguments bind to.
type Tool[A any] struct {
	def      ToolDefinition
	required []string
	handler  func(ctx context.Context, args A) (any, error)
}

// NewTool declares a tool. schema is the JSON Schema of A as shown to the
// model; its "required" list is enforced before binding.
func NewTool[A any](name, description string, schema json.RawMessage, handler func(ctx context.Context, args A) (any, error)) *Tool[A] {
	var meta struct {
		Required []string `json:"required"`
	}
	_ = json.Unmarshal(schema, &meta)

	return &Tool[A]{
		def: ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		required: meta.Required,
		handler:  handler,
	}
}

func (t *Tool[A]) Definition() ToolDefinition { return t.def }

func (t *Tool[A]) call(ctx context.Context, args string) (any, error) {
	a, err := bindArgs[A](args, t.required)
	if err != nil {
		return nil, err
	}
	return t.handler(ctx, a)
}

// bindArgs decodes a JSON object into A, rejecting unknown fields, missing
// required fields and mismatched types.
func bindArgs[A any](raw string, required []string) (A, error) {
	var a A

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		raw = "{}"
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return a, invalidArgs("arguments must be a JSON object")
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return a, invalidArgs("missing required parameter %q", name)
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return a, invalidArgs("parameter %q has the wrong type (got %s)", typeErr.Field, typeErr.Value)
		}
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			return a, argErr
		}
		if msg, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return a, invalidArgs("unknown parameter %s", msg)
		}
		return a, invalidArgs("arguments could not be decoded")
	}
	return a, nil
}

// Result is the outcome of one tool invocation.
type Result struct {
	Success bool   `json:"success"`
	Tool    string `json:"tool"`
	Result  any    `json:"result"`
	Error   string `json:"error,omitempty"`
}

// ModelPayload is the JSON sent back to the model as the tool message.
func (r Result) ModelPayload() string {
	var v any = r.Result
	if !r.Success {
		v = map[string]string{"error": r.Error}
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": safety.ToolFailure(err)})
	}
	return string(b)
}

// ToolRegistry is the ordered catalogue of tools. Listing order is
// registration order.
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  []ToolSpec
	index  map[string]int
	logger *zap.Logger
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(logger *zap.Logger) *ToolRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolRegistry{
		index:  make(map[string]int),
		logger: logger,
	}
}

// Register adds a tool to the registry
func (r *ToolRegistry) Register(t ToolSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Definition().Name
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.index[name] = len(r.tools)
	r.tools = append(r.tools, t)
	return nil
}

// MustRegister adds a tool to the registry, panicking on error.
func (r *ToolRegistry) MustRegister(t ToolSpec) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name
func (r *ToolRegistry) Get(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.tools[i], true
}

// Definitions returns the definitions of all registered tools, in order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Definition()
	}
	return defs
}

// Names returns tool names in listing order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Definition().Name
	}
	return names
}

// Invoke runs a tool. It never panics: unknown tools and bad arguments are
// reported in the Result, and failures inside a tool body are reduced to a
// generic category. The detailed cause is only logged.
func (r *ToolRegistry) Invoke(ctx context.Context, name, args string) (res Result) {
	res = Result{Tool: name}

	t, ok := r.Get(name)
	if !ok {
		res.Error = fmt.Sprintf("unknown tool: %s (available: %s)", name, strings.Join(r.Names(), ", "))
		r.logger.Warn("unknown tool requested", zap.String("tool", name))
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool panicked",
				zap.String("tool", name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()))
			res = Result{Tool: name, Error: "tool execution failed: " + safety.CategoryInternal}
		}
	}()

	out, err := t.call(ctx, args)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			res.Error = fmt.Sprintf("invalid arguments for %s: %s", name, argErr.Reason)
			r.logger.Info("tool arguments rejected", zap.String("tool", name), zap.String("reason", argErr.Reason))
			return res
		}
		res.Error = safety.ToolFailure(err)
		r.logger.Error("tool failed", zap.String("tool", name), zap.String("args", args), zap.Error(err))
		return res
	}

	r.logger.Debug("tool executed", zap.String("tool", name))
	res.Success = true
	res.Result = out
	return res
}
