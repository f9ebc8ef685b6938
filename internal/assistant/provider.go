package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reinhart/lumen/internal/safety"
	"go.uber.org/zap"
)

// ErrMalformedResponse is returned by backends when the upstream payload
// cannot be interpreted.
var ErrMalformedResponse = errors.New("malformed upstream response")

func malformed(format string, v ...any) error {
	return &safety.ProviderError{
		Kind: safety.KindMalformed,
		Err:  fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, v...)),
	}
}

const defaultProviderTimeout = 30 * time.Second

// AdapterConfig describes one provider.
type AdapterConfig struct {
	Name     ProviderName
	Model    string
	Endpoint string
	Backend  Backend
	// Probe reports reachability. A nil probe means "available if a
	// backend is configured".
	Probe   func(ctx context.Context) bool
	Timeout time.Duration
	Logger  *zap.Logger
}

// Adapter turns a Backend into a Provider: it bounds every call with a
// timeout and folds every failure into Response.Error.
type Adapter struct {
	name     ProviderName
	model    string
	endpoint string
	backend  Backend
	probe    func(ctx context.Context) bool
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAdapter creates a provider adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProviderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Adapter{
		name:     cfg.Name,
		model:    cfg.Model,
		endpoint: cfg.Endpoint,
		backend:  cfg.Backend,
		probe:    cfg.Probe,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With(zap.String("provider", string(cfg.Name))),
	}
}

func (a *Adapter) Name() ProviderName { return a.name }

func (a *Adapter) Model() string { return a.model }

// Endpoint is the base URL the adapter talks to, if it has one.
func (a *Adapter) Endpoint() string { return a.endpoint }

// Available implements Provider.
func (a *Adapter) Available(ctx context.Context) (ok bool) {
	if a.backend == nil {
		return false
	}
	if a.probe == nil {
		return true
	}
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("availability probe panicked", zap.Any("panic", p))
			ok = false
		}
	}()
	return a.probe(ctx)
}

// Generate implements Provider. The backend call is detached from the
// caller's cancellation so an issued request completes or times out on its
// own; only the adapter timeout bounds it.
func (a *Adapter) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (resp Response) {
	if a.backend == nil {
		return Response{Error: string(a.name) + " provider not configured"}
	}

	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("backend panicked", zap.Any("panic", p))
			resp = Response{Error: safety.ProviderFailure(string(a.name), malformed("panic: %v", p))}
		}
	}()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	start := time.Now()
	msg, err := a.backend.Chat(callCtx, messages, tools)
	if err != nil {
		a.logger.Warn("provider call failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return Response{Error: safety.ProviderFailure(string(a.name), err)}
	}
	if msg == nil {
		a.logger.Warn("provider returned no message")
		return Response{Error: safety.ProviderFailure(string(a.name), malformed("empty message"))}
	}

	a.logger.Debug("provider call finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("content_len", len(msg.Content)),
		zap.Int("tool_calls", len(msg.ToolCalls)))

	return Response{
		Success:   true,
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
	}
}
