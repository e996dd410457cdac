// Package logging provides an slog handler that carries per-message context.
package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys used in logging.
type ContextKey string

const (
	// HandlingIDKey identifies one run of the message handler.
	HandlingIDKey ContextKey = "handling_id"
	// ChannelIDKey is the chat channel the message arrived on.
	ChannelIDKey ContextKey = "channel_id"
	// MessageIDKey is the chat platform's message ID.
	MessageIDKey ContextKey = "message_id"
)

var contextKeys = []ContextKey{HandlingIDKey, ChannelIDKey, MessageIDKey}

// ContextHandler is an slog.Handler that extracts values from context
// and includes them in all log records.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new context-aware handler that wraps another handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{
		handler: handler,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds context attributes to the record and passes it to the underlying handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}

	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new handler with additional attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		handler: h.handler.WithAttrs(attrs),
	}
}

// WithGroup returns a new handler with a group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		handler: h.handler.WithGroup(name),
	}
}

// WithMessage tags ctx with a fresh handling ID and the message's chat coordinates.
func WithMessage(ctx context.Context, channelID, messageID string) context.Context {
	ctx = context.WithValue(ctx, HandlingIDKey, GenerateHandlingID())
	ctx = context.WithValue(ctx, ChannelIDKey, channelID)
	return context.WithValue(ctx, MessageIDKey, messageID)
}

// GetHandlingID retrieves the handling ID from context.
func GetHandlingID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(HandlingIDKey).(string)
	return id, ok
}

// GenerateHandlingID generates a new UUID-based handling ID.
func GenerateHandlingID() string {
	return uuid.New().String()
}
