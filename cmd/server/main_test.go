package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	assert.True(t, newLogger(slog.LevelInfo).Enabled(ctx, slog.LevelInfo))
	assert.False(t, newLogger(slog.LevelWarn).Enabled(ctx, slog.LevelInfo))
	assert.True(t, newLogger(slog.LevelDebug).Enabled(ctx, slog.LevelDebug))
}
