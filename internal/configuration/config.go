package configuration

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/reinhart/lumen/internal/assistant"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm" toml:"llm"`
	Agent  AgentConfig  `mapstructure:"agent" toml:"agent"`
	Store  StoreConfig  `mapstructure:"store" toml:"store"`
	Server ServerConfig `mapstructure:"server" toml:"server"`
}

type LLMConfig struct {
	// Provider is the routing policy: auto, local or cloud (groq is an
	// alias for cloud).
	Provider string      `mapstructure:"provider" toml:"provider"`
	Local    LocalConfig `mapstructure:"local" toml:"local"`
	Cloud    CloudConfig `mapstructure:"cloud" toml:"cloud"`
}

type LocalConfig struct {
	BaseURL        string `mapstructure:"base_url" toml:"base_url"`
	Model          string `mapstructure:"model" toml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

type CloudConfig struct {
	Backend        string `mapstructure:"backend" toml:"backend"` // openai, anthropic or gemini
	BaseURL        string `mapstructure:"base_url" toml:"base_url"`
	APIKey         string `mapstructure:"api_key" toml:"api_key"`
	Model          string `mapstructure:"model" toml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

type AgentConfig struct {
	MaxIterations int  `mapstructure:"max_iterations" toml:"max_iterations"`
	Debug         bool `mapstructure:"debug" toml:"debug"`
}

type StoreConfig struct {
	// Path to a JSON or YAML transactions file. Empty means an empty store.
	Path string `mapstructure:"path" toml:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"`
}

// Timeout returns the per-request timeout of the local provider.
func (c LocalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the per-request timeout of the cloud provider.
func (c CloudConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: string(assistant.PolicyAuto),
			Local: LocalConfig{
				BaseURL:        assistant.DefaultLocalURL,
				Model:          assistant.DefaultLocalModel,
				TimeoutSeconds: 30,
			},
			Cloud: CloudConfig{
				Backend:        string(assistant.CloudOpenAI),
				TimeoutSeconds: 30,
			},
		},
		Agent: AgentConfig{
			MaxIterations: assistant.DefaultMaxIterations,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// UserPath is the per-user config file, or ./config.toml when there is no
// home directory.
func UserPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "lumen", "config.toml")
}

// SearchPaths lists config locations in the order they are tried.
func SearchPaths() []string {
	paths := []string{"./config.toml"}
	if user := UserPath(); user != paths[0] {
		paths = append(paths, user)
	}
	return append(paths, "/etc/lumen/config.toml")
}

// envBindings maps config keys to environment variables. Earlier variables
// win when several are set.
var envBindings = map[string][]string{
	"llm.provider":              {"LLM_PROVIDER"},
	"llm.local.base_url":        {"LOCAL_LLM_URL"},
	"llm.local.model":           {"LOCAL_LLM_MODEL"},
	"llm.local.timeout_seconds": {"LOCAL_LLM_TIMEOUT"},
	"llm.cloud.backend":         {"CLOUD_LLM_BACKEND"},
	"llm.cloud.base_url":        {"CLOUD_LLM_URL"},
	"llm.cloud.model":           {"CLOUD_LLM_MODEL"},
	"llm.cloud.timeout_seconds": {"CLOUD_LLM_TIMEOUT"},
	"llm.cloud.api_key":         {"CLOUD_LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"},
	"agent.debug":               {"DEBUG"},
	"store.path":                {"LUMEN_STORE_PATH"},
	"server.addr":               {"LUMEN_ADDR"},
}

// Load reads configuration: defaults, then the config file, then the
// environment. An explicit path must exist; otherwise the first existing
// file from SearchPaths is used, if any. The returned string is the file
// that was read, empty when running on defaults.
func Load(path string) (*Config, string, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v, DefaultConfig())

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, "", fmt.Errorf("bind %s: %w", key, err)
		}
	}

	used := path
	if used == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				used = p
				break
			}
		}
	}
	if used != "" {
		v.SetConfigFile(used)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to parse config file %s: %w", used, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, used, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.local.base_url", d.LLM.Local.BaseURL)
	v.SetDefault("llm.local.model", d.LLM.Local.Model)
	v.SetDefault("llm.local.timeout_seconds", d.LLM.Local.TimeoutSeconds)
	v.SetDefault("llm.cloud.backend", d.LLM.Cloud.Backend)
	v.SetDefault("llm.cloud.base_url", d.LLM.Cloud.BaseURL)
	v.SetDefault("llm.cloud.api_key", d.LLM.Cloud.APIKey)
	v.SetDefault("llm.cloud.model", d.LLM.Cloud.Model)
	v.SetDefault("llm.cloud.timeout_seconds", d.LLM.Cloud.TimeoutSeconds)
	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.debug", d.Agent.Debug)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("server.addr", d.Server.Addr)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := assistant.ParsePolicy(c.LLM.Provider); err != nil {
		return fmt.Errorf("llm.provider: %w", err)
	}
	if _, err := assistant.ParseCloudBackend(c.LLM.Cloud.Backend); err != nil {
		return fmt.Errorf("llm.cloud.backend: %w", err)
	}
	if c.LLM.Local.TimeoutSeconds <= 0 {
		return errors.New("llm.local.timeout_seconds must be positive")
	}
	if c.LLM.Cloud.TimeoutSeconds <= 0 {
		return errors.New("llm.cloud.timeout_seconds must be positive")
	}
	if c.Agent.MaxIterations <= 0 {
		return errors.New("agent.max_iterations must be positive")
	}
	return nil
}

// Redacted returns a copy that is safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if key := out.LLM.Cloud.APIKey; key != "" {
		out.LLM.Cloud.APIKey = "****"
		if len(key) > 8 {
			out.LLM.Cloud.APIKey += key[len(key)-4:]
		}
	}
	return &out
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteDefault creates a config file holding the defaults. It never
// overwrites an existing file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()

	header := strings.Join([]string{
		"# Lumen configuration.",
		"# Environment variables override these values (see LLM_PROVIDER, CLOUD_LLM_API_KEY, ...).",
		"",
	}, "\n")
	if _, err := io.WriteString(f, header+"\n"); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := DefaultConfig().Encode(f); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
