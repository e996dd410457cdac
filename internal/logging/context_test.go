package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_AddsMessageAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithMessage(context.Background(), "chan-1", "msg-1")
	logger.InfoContext(ctx, "handled")

	out := buf.String()
	assert.Contains(t, out, "channel_id=chan-1")
	assert.Contains(t, out, "message_id=msg-1")
	assert.Contains(t, out, "handling_id=")
}

func TestContextHandler_NoContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "ready")

	assert.NotContains(t, buf.String(), "handling_id")
}

func TestContextHandler_WithAttrsKeepsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil))).With("component", "router")

	logger.InfoContext(WithMessage(context.Background(), "chan-2", "msg-2"), "handled")

	assert.Contains(t, buf.String(), "component=router")
	assert.Contains(t, buf.String(), "channel_id=chan-2")
}

func TestWithMessage_GeneratesDistinctHandlingIDs(t *testing.T) {
	first, ok := GetHandlingID(WithMessage(context.Background(), "c", "m"))
	require.True(t, ok)
	second, ok := GetHandlingID(WithMessage(context.Background(), "c", "m"))
	require.True(t, ok)

	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(first)
	assert.NoError(t, err)
}
