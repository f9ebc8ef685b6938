package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrNoProvider is the unified error when auto routing runs out of providers.
const ErrNoProvider = "no provider available"

// Policy decides which provider answers.
type Policy string

const (
	PolicyLocal Policy = "local" // fixed-local
	PolicyCloud Policy = "cloud" // fixed-cloud
	PolicyAuto  Policy = "auto"
)

// ParsePolicy maps a config value to a Policy. Empty means auto.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PolicyAuto, nil
	case "local", "fixed-local":
		return PolicyLocal, nil
	case "cloud", "fixed-cloud", "groq":
		return PolicyCloud, nil
	default:
		return "", fmt.Errorf("unknown provider policy: %q", s)
	}
}

// RouterConfig wires a Router.
type RouterConfig struct {
	Policy Policy
	Local  Provider
	Cloud  Provider
	Logger *zap.Logger
}

// Router is the single place that decides which provider serves a turn. It
// holds no mutable state and is safe for concurrent use.
type Router struct {
	policy Policy
	local  Provider
	cloud  Provider
	logger *zap.Logger
}

// NewRouter creates a router. A nil provider is treated as never available.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Policy == "" {
		cfg.Policy = PolicyAuto
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Router{
		policy: cfg.Policy,
		local:  cfg.Local,
		cloud:  cfg.Cloud,
		logger: cfg.Logger,
	}
}

// Policy returns the configured policy.
func (r *Router) Policy() Policy { return r.policy }

// Generate runs one model turn through the selected provider. Under the auto
// policy a failed or unavailable local provider falls back to the cloud
// provider exactly once.
func (r *Router) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) Response {
	switch r.policy {
	case PolicyLocal:
		return r.fixed(ctx, r.local, ProviderLocal, messages, tools)
	case PolicyCloud:
		return r.fixed(ctx, r.cloud, ProviderCloud, messages, tools)
	}

	if r.local != nil && r.local.Available(ctx) {
		resp := r.local.Generate(ctx, messages, tools)
		if resp.Success {
			resp.ProviderUsed = ProviderLocal
			return resp
		}
		r.logger.Warn("local provider failed, falling back to cloud", zap.String("error", resp.Error))
	} else {
		r.logger.Debug("local provider unavailable")
	}

	if r.cloud != nil && r.cloud.Available(ctx) {
		resp := r.cloud.Generate(ctx, messages, tools)
		if resp.Success {
			resp.ProviderUsed = ProviderCloud
			return resp
		}
		r.logger.Warn("cloud provider failed", zap.String("error", resp.Error))
	} else {
		r.logger.Debug("cloud provider unavailable")
	}

	return Response{Error: ErrNoProvider}
}

// fixed returns the provider's result as-is, success or failure.
func (r *Router) fixed(ctx context.Context, p Provider, name ProviderName, messages []Message, tools []ToolDefinition) Response {
	if p == nil {
		return Response{Error: string(name) + " provider not configured", ProviderUsed: name}
	}
	resp := p.Generate(ctx, messages, tools)
	resp.ProviderUsed = name
	return resp
}

// GenerateSimple answers a single prompt without tools.
func (r *Router) GenerateSimple(ctx context.Context, prompt, system string) Response {
	var messages []Message
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})
	return r.Generate(ctx, messages, nil)
}

// ProviderStatus describes one provider.
type ProviderStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
	URL       string `json:"url,omitempty"`
}

// Status is the router's view of its providers.
type Status struct {
	Policy Policy         `json:"policy"`
	Local  ProviderStatus `json:"local"`
	Cloud  ProviderStatus `json:"cloud"`
}

// Status probes both providers.
func (r *Router) Status(ctx context.Context) Status {
	st := Status{Policy: r.policy}
	if r.local != nil {
		st.Local = ProviderStatus{
			Available: r.local.Available(ctx),
			Model:     r.local.Model(),
			URL:       endpointOf(r.local),
		}
	}
	if r.cloud != nil {
		st.Cloud = ProviderStatus{
			Available: r.cloud.Available(ctx),
			Model:     r.cloud.Model(),
		}
	}
	return st
}

func endpointOf(p Provider) string {
	if e, ok := p.(interface{ Endpoint() string }); ok {
		return e.Endpoint()
	}
	return ""
}
