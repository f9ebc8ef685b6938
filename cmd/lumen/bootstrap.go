package main

import (
	"context"
	"fmt"
	"io"

	"github.com/reinhart/lumen/internal/assistant"
	"github.com/reinhart/lumen/internal/configuration"
	"github.com/reinhart/lumen/internal/ledger"
	"github.com/reinhart/lumen/internal/logger"
	"go.uber.org/zap"
)

// app holds everything a command needs. Nothing here is global; each
// command builds its own.
type app struct {
	cfg      *configuration.Config
	cfgPath  string
	logger   *zap.Logger
	store    *ledger.MemoryStore
	registry *assistant.ToolRegistry
	router   *assistant.Router
	server   *assistant.Server

	closers []io.Closer
}

type logMode int

const (
	logStderr logMode = iota
	logFile           // the terminal belongs to the UI
)

const debugLogPath = "debug.log"

func loadConfig() (*configuration.Config, string, error) {
	cfg, used, err := configuration.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, used, nil
}

func newApp(ctx context.Context, mode logMode) (*app, error) {
	cfg, used, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, cfgPath: used}

	debug := verbose || cfg.Agent.Debug
	switch {
	case mode == logStderr:
		a.logger = logger.New(logger.Options{Debug: debug})
	case debug:
		l, closer, err := logger.NewFile(debugLogPath, true)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", debugLogPath, err)
		}
		a.logger = l
		a.closers = append(a.closers, closer)
	default:
		a.logger = logger.Discard()
	}

	a.store, err = ledger.OpenFile(cfg.Store.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Debug("transactions loaded", zap.String("path", cfg.Store.Path), zap.Int("count", a.store.Len()))

	a.registry = assistant.NewToolRegistry(a.logger.Named("tools"))
	(&assistant.FinanceTools{Store: a.store}).Register(a.registry)

	policy, err := assistant.ParsePolicy(cfg.LLM.Provider)
	if err != nil {
		a.Close()
		return nil, err
	}
	backend, err := assistant.ParseCloudBackend(cfg.LLM.Cloud.Backend)
	if err != nil {
		a.Close()
		return nil, err
	}

	local := assistant.NewLocalProvider(assistant.LocalOptions{
		BaseURL: cfg.LLM.Local.BaseURL,
		Model:   cfg.LLM.Local.Model,
		Timeout: cfg.LLM.Local.Timeout(),
		Logger:  a.logger.Named("local"),
	})
	cloud, err := assistant.NewCloudProvider(ctx, assistant.CloudOptions{
		Backend: backend,
		APIKey:  cfg.LLM.Cloud.APIKey,
		BaseURL: cfg.LLM.Cloud.BaseURL,
		Model:   cfg.LLM.Cloud.Model,
		Timeout: cfg.LLM.Cloud.Timeout(),
		Logger:  a.logger.Named("cloud"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.router = assistant.NewRouter(assistant.RouterConfig{
		Policy: policy,
		Local:  local,
		Cloud:  cloud,
		Logger: a.logger.Named("router"),
	})
	a.server = assistant.NewServer(assistant.ServerConfig{
		Generator:     a.router,
		Registry:      a.registry,
		SystemPrompt:  assistant.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        a.logger.Named("server"),
	})

	a.logger.Debug("assistant ready",
		zap.String("config", used),
		zap.String("policy", string(policy)),
		zap.String("local_model", local.Model()),
		zap.String("cloud_backend", string(backend)),
		zap.String("cloud_model", cloud.Model()))
	return a, nil
}

func (a *app) Close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}
