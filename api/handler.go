// Package api exposes the reply generator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/reply"
)

// KindInvalidInput is the error kind for rejected request bodies.
const KindInvalidInput = "invalid_input"

const defaultMaxBodySize = 1 << 20 // 1MB

// Replier produces the reply for one instruction. An empty instruction
// selects the replier's default.
type Replier interface {
	Generate(ctx context.Context, instruction string) (map[string]any, error)
}

// ChatReplyRequest is the optional body of POST /.
type ChatReplyRequest struct {
	Input *string `json:"input"`
}

// ErrorBody is the JSON envelope of failed requests.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// MaxInputLength is the rune limit for caller input; 0 disables it.
	MaxInputLength int
	MaxBodySize    int64
	// RequestTimeout bounds each generation; 0 disables it.
	RequestTimeout time.Duration
	Logger         logging.Logger
}

// Handler serves the chat reply endpoint.
type Handler struct {
	replier Replier
	opts    HandlerOptions
}

// NewHandler creates a Handler forwarding to replier.
func NewHandler(replier Replier, optFns ...func(o *HandlerOptions)) *Handler {
	opts := HandlerOptions{
		MaxInputLength: 2000,
		MaxBodySize:    defaultMaxBodySize,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Handler{replier: replier, opts: opts}
}

// HandleChatReply invokes the replier exactly once and writes its result
// with status 201, or a classified error envelope.
func (h *Handler) HandleChatReply(w http.ResponseWriter, r *http.Request) {
	instruction, err := h.decode(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		h.opts.Logger.Warn("api.request.rejected", "error", err)
		writeError(w, status, KindInvalidInput, err.Error())
		return
	}

	ctx := r.Context()
	if h.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.RequestTimeout)
		defer cancel()
	}

	result, err := h.replier.Generate(ctx, instruction)
	if err != nil {
		kind := string(reply.KindExecutor)
		var rerr *reply.Error
		if errors.As(err, &rerr) {
			kind = string(rerr.Kind)
		}
		h.opts.Logger.Error("api.reply.failed", "kind", kind, "error", err)
		writeError(w, statusForKind(kind), kind, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// decode returns the caller's instruction, or "" when the body is empty or
// has no input field.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req ChatReplyRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: unexpected data after JSON body", ErrInvalidInput)
	}

	if req.Input == nil {
		return "", nil
	}
	if err := ValidateInput(*req.Input, h.opts.MaxInputLength); err != nil {
		return "", err
	}
	return *req.Input, nil
}

func statusForKind(kind string) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case string(reply.KindModelProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}
