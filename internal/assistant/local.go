package assistant

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLocalURL   = "http://localhost:1234/v1"
	DefaultLocalModel = "qwen2.5-coder-3b-instruct-mlx"

	localProbeTimeout = 5 * time.Second
)

// LocalOptions configures the local provider.
type LocalOptions struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewLocalProvider creates a provider for a local OpenAI-compatible server
// (LM Studio, Ollama's /v1 endpoint).
func NewLocalProvider(opts LocalOptions) *Adapter {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultLocalURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Model == "" {
		opts.Model = DefaultLocalModel
	}

	// The API key is ignored by local servers.
	backend := NewOpenAIBackend(OpenAIOptions{
		APIKey:  "local",
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
	})

	return NewAdapter(AdapterConfig{
		Name:     ProviderLocal,
		Model:    opts.Model,
		Endpoint: opts.BaseURL,
		Backend:  backend,
		Probe: func(ctx context.Context) bool {
			ctx, cancel := context.WithTimeout(ctx, localProbeTimeout)
			defer cancel()
			_, err := backend.ListModels(ctx)
			return err == nil
		},
		Timeout: opts.Timeout,
		Logger:  opts.Logger,
	})
}
