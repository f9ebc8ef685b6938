// Package api exposes the assistant over JSON HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/reinhart/lumen/internal/assistant"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Assistant is the part of assistant.Server the API serves.
type Assistant interface {
	Tools() []assistant.ToolDefinition
	ExecuteTool(ctx context.Context, name, args string) assistant.Result
	Chat(ctx context.Context, message string, opts ...assistant.ChatOption) assistant.ChatResult
}

// StatusSource reports provider availability.
type StatusSource interface {
	Status(ctx context.Context) assistant.Status
}

type handlers struct {
	assistant Assistant
	status    StatusSource
	logger    *zap.Logger
}

type middleware func(http.Handler) http.Handler

// NewHandler builds the HTTP surface.
func NewHandler(a Assistant, status StatusSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handlers{assistant: a, status: status, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tools", h.handleTools)
	mux.HandleFunc("POST /api/tools/execute", h.handleExecute)
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /api/llm/status", h.handleStatus)

	return chain(mux, withRecover(logger), withAccessLog(logger), withBodyLimit(maxBodyBytes))
}

func chain(handler http.Handler, middlewares ...middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func withBodyLimit(limit int64) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withAccessLog(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("elapsed", time.Since(start)))
		})
	}
}

func withRecover(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panic", zap.String("path", r.URL.Path), zap.Any("panic", v))
					writeError(w, http.StatusInternalServerError, errorCodeInternal, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
