package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reinhart/lumen/internal/assistant"
	"go.uber.org/zap"
)

type functionEnvelope struct {
	Type     string                   `json:"type"`
	Function assistant.ToolDefinition `json:"function"`
}

func (h *handlers) handleTools(w http.ResponseWriter, r *http.Request) {
	defs := h.assistant.Tools()
	out := make([]functionEnvelope, 0, len(defs))
	for _, d := range defs {
		out = append(out, functionEnvelope{Type: "function", Function: d})
	}
	writeJSON(w, http.StatusOK, out)
}

type executeRequest struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleExecute runs one tool directly. Tool failures are reported in the
// result body with status 200, the same shape the model sees.
func (h *handlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if strings.TrimSpace(req.Tool) == "" {
		writeMappedError(w, invalidRequestError("tool is required"))
		return
	}

	res := h.assistant.ExecuteTool(r.Context(), req.Tool, string(req.Arguments))
	if !res.Success {
		h.logger.Debug("direct tool execution failed", zap.String("tool", req.Tool), zap.String("error", res.Error))
	}
	writeJSON(w, http.StatusOK, res)
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat answers one message. A failed conversation is still a 200: the
// result carries success=false and a user-safe response.
func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeMappedError(w, invalidRequestError("message is required"))
		return
	}

	writeJSON(w, http.StatusOK, h.assistant.Chat(r.Context(), msg))
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		writeError(w, http.StatusServiceUnavailable, errorCodeInternal, "router not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.status.Status(r.Context()))
}
