package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls how the process logger is built.
type Options struct {
	Debug  bool
	Output io.Writer // defaults to stderr
}

// New builds the process logger. Components receive it explicitly; nothing
// in this package holds global state.
func New(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), level)

	return zap.New(core, zap.AddCaller())
}

// NewFile builds a logger that writes to path, for modes where the terminal
// belongs to the UI. The returned closer must be called on exit.
func NewFile(path string, debug bool) (*zap.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(Options{Debug: debug, Output: f}), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *zap.Logger {
	return zap.NewNop()
}
