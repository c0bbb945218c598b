package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  logrus.Level
	}{
		{"", logrus.WarnLevel},
		{"debug", logrus.DebugLevel},
		{" INFO ", logrus.InfoLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			defer testutils.WithEnv(t, "LOG_LEVEL", tt.value)()
			assert.Equal(t, tt.want, parseLogLevel())
		})
	}
}

// Protocol frames own stdout, so logging must never land there.
func TestConfigureLogging_NeverStdout(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	closer, err := configureLogging(logger, path)
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()

	assert.NotEqual(t, os.Stdout, logger.Out)
	assert.NotEqual(t, os.Stderr, logger.Out)

	logger.Warn("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestConfigureLogging_UnwritableKeepsDiscard(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := configureLogging(logger, filepath.Join(blocker, "sub", "server.log"))
	require.Error(t, err)
	assert.Equal(t, io.Discard, logger.Out)
}
