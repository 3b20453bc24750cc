package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"DEV":        slog.LevelDebug,
		"info":       slog.LevelInfo,
		"warning":    slog.LevelWarn,
		"production": slog.LevelError,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in, slog.LevelInfo), in)
	}
	assert.Equal(t, slog.LevelWarn, ParseLevel("", slog.LevelWarn))
	assert.Equal(t, slog.LevelError, ParseLevel("verbose", slog.LevelError))
}
