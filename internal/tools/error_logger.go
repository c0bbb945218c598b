package tools

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLogRetentionDays is the number of days tool error entries are kept
const DefaultLogRetentionDays = 60

// ErrorLogEntry is one JSON line in the tool error log
type ErrorLogEntry struct {
	Timestamp string         `json:"timestamp"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error"`
	Code      int            `json:"code,omitempty"`
}

// ErrorLogger appends failed tool calls to a JSON-lines file. The zero value
// and a nil pointer are both valid, disabled loggers.
type ErrorLogger struct {
	enabled  bool
	logFile  *os.File
	logger   *logrus.Logger
	mu       sync.Mutex
	filePath string
	now      func() time.Time
}

// NewErrorLogger opens (or creates) path for appending. When enabled is false a
// disabled logger is returned and no file is touched.
func NewErrorLogger(logger *logrus.Logger, enabled bool, path string) (*ErrorLogger, error) {
	l := &ErrorLogger{logger: logger, now: time.Now}
	if !enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return l, fmt.Errorf("failed to create log directory: %w", err)
	}

	l.filePath = path
	if err := l.reopenLocked(); err != nil {
		return l, err
	}
	l.enabled = true

	if err := l.rotate(); err != nil && logger != nil {
		logger.WithError(err).Warn("Failed to rotate old tool error logs")
	}
	return l, nil
}

// Log records a failed call
func (l *ErrorLogger) Log(toolName string, args map[string]any, code int, err error) {
	if l == nil || !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return
	}

	entry := ErrorLogEntry{
		Timestamp: l.now().Format(time.RFC3339),
		ToolName:  toolName,
		Arguments: redact(args),
		Error:     err.Error(),
		Code:      code,
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		if l.logger != nil {
			l.logger.WithError(marshalErr).Error("Failed to marshal tool error log entry")
		}
		return
	}

	if _, writeErr := l.logFile.Write(append(data, '\n')); writeErr != nil && l.logger != nil {
		l.logger.WithError(writeErr).Error("Failed to write tool error log entry")
	}
}

// Close closes the log file
func (l *ErrorLogger) Close() error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// IsEnabled returns whether error logging is enabled
func (l *ErrorLogger) IsEnabled() bool {
	return l != nil && l.enabled
}

// Path returns the path to the error log file
func (l *ErrorLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// rotate drops entries older than the retention period
func (l *ErrorLogger) rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file for rotation: %w", err)
		}
		l.logFile = nil
	}

	file, err := os.Open(l.filePath)
	if err != nil {
		return l.reopenLocked()
	}

	var kept []string
	cutoff := l.now().AddDate(0, 0, -DefaultLogRetentionDays)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry ErrorLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			kept = append(kept, line)
			continue
		}
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || ts.After(cutoff) {
			kept = append(kept, line)
		}
	}
	scanErr := scanner.Err()
	_ = file.Close()
	if scanErr != nil {
		_ = l.reopenLocked()
		return fmt.Errorf("error reading log file during rotation: %w", scanErr)
	}

	content := ""
	if len(kept) > 0 {
		content = strings.Join(kept, "\n") + "\n"
	}
	tmpPath := l.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		_ = l.reopenLocked()
		return fmt.Errorf("failed to write temporary rotated log file: %w", err)
	}
	if err := os.Rename(tmpPath, l.filePath); err != nil {
		_ = os.Remove(tmpPath)
		_ = l.reopenLocked()
		return fmt.Errorf("failed to rename temporary log file during rotation: %w", err)
	}
	return l.reopenLocked()
}

// reopenLocked opens the log file in append mode. Caller must hold l.mu or be the constructor.
func (l *ErrorLogger) reopenLocked() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open tool error log file: %w", err)
	}
	l.logFile = f
	return nil
}

// redact masks credential-looking arguments such as SMTP passwords
func redact(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		switch {
		case strings.Contains(lower, "password"), strings.Contains(lower, "secret"), strings.Contains(lower, "token"):
			out[k] = "[redacted]"
		case isMap(v):
			out[k] = redact(v.(map[string]any))
		default:
			out[k] = v
		}
	}
	return out
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
