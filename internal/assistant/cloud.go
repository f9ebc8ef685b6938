package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CloudBackend selects the API the cloud provider speaks.
type CloudBackend string

const (
	CloudOpenAI    CloudBackend = "openai" // any OpenAI-compatible API, Groq by default
	CloudAnthropic CloudBackend = "anthropic"
	CloudGemini    CloudBackend = "gemini"
)

const (
	DefaultCloudURL   = "https://api.groq.com/openai/v1"
	DefaultCloudModel = "llama-3.3-70b-versatile"

	// Keys this short are placeholders, not credentials.
	minAPIKeyLength = 10
)

// ParseCloudBackend maps a config value to a CloudBackend. Empty means openai.
func ParseCloudBackend(s string) (CloudBackend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai", "groq":
		return CloudOpenAI, nil
	case "anthropic", "claude":
		return CloudAnthropic, nil
	case "gemini", "google":
		return CloudGemini, nil
	default:
		return "", fmt.Errorf("unknown cloud backend: %q", s)
	}
}

// CloudOptions configures the cloud provider.
type CloudOptions struct {
	Backend CloudBackend
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCloudProvider creates the cloud provider. Without a usable API key the
// provider is reported unavailable and never makes a network call.
func NewCloudProvider(ctx context.Context, opts CloudOptions) (*Adapter, error) {
	if opts.Backend == "" {
		opts.Backend = CloudOpenAI
	}

	var (
		backend  Backend
		model    = opts.Model
		endpoint = opts.BaseURL
	)

	configured := len(strings.TrimSpace(opts.APIKey)) > minAPIKeyLength

	switch opts.Backend {
	case CloudOpenAI:
		if model == "" {
			model = DefaultCloudModel
		}
		if endpoint == "" {
			endpoint = DefaultCloudURL
		}
		if configured {
			backend = NewOpenAIBackend(OpenAIOptions{
				APIKey:  opts.APIKey,
				BaseURL: endpoint,
				Model:   model,
				Timeout: opts.Timeout,
			})
		}
	case CloudAnthropic:
		if model == "" {
			model = DefaultAnthropicModel
		}
		if configured {
			backend = NewAnthropicBackend(AnthropicOptions{
				APIKey:  opts.APIKey,
				BaseURL: endpoint,
				Model:   model,
				Timeout: opts.Timeout,
			})
		}
	case CloudGemini:
		if model == "" {
			model = DefaultGeminiModel
		}
		if configured {
			g, err := NewGeminiBackend(ctx, opts.APIKey, model)
			if err != nil {
				return nil, fmt.Errorf("create gemini backend: %w", err)
			}
			backend = g
		}
	default:
		return nil, fmt.Errorf("unknown cloud backend: %q", opts.Backend)
	}

	if !configured && opts.Logger != nil {
		opts.Logger.Info("cloud provider has no API key, it will be reported unavailable",
			zap.String("backend", string(opts.Backend)))
	}

	return NewAdapter(AdapterConfig{
		Name:     ProviderCloud,
		Model:    model,
		Endpoint: endpoint,
		Backend:  backend,
		Timeout:  opts.Timeout,
		Logger:   opts.Logger,
	}), nil
}
