package testutils

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// CreateTestLogger creates a logger suitable for testing
func CreateTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

// WithEnv sets an environment variable and returns a function restoring the previous value
func WithEnv(t *testing.T, key, value string) func() {
	t.Helper()
	original, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	return func() {
		if had {
			_ = os.Setenv(key, original)
		} else {
			_ = os.Unsetenv(key)
		}
	}
}

// ResultText returns the text of the first content item of a tool result
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content, "expected content in tool result")
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

// WriteFile writes content below dir and returns the full path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := dir + string(os.PathSeparator) + name
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// Lines splits output into non-empty lines
func Lines(s string) []string {
	var out []string
	for line := range strings.SplitSeq(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
