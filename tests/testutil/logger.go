package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/JWThewes/MicroPress-Plugin-SDK/internal/logging"
	"github.com/stretchr/testify/assert"
)

// TestLogger is a logging.Logger whose output is kept in memory.
//
// Example usage:
//
//	logger := testutil.NewTestLogger(t, true)
//	store := secrets.NewParameterStoreWithClient(fake, secrets.WithLogger(logger.Logger))
//	// ... exercise store ...
//	logger.AssertNotContains(t, "s3cr3t")
//	logger.AssertLogCount(t, "debug", 1)
type TestLogger struct {
	*logging.Logger
	buf *lockedBuffer
}

// NewTestLogger creates a TestLogger. Colour is always disabled so
// assertions can match plain markers.
func NewTestLogger(t *testing.T, debug bool) *TestLogger {
	t.Helper()

	buf := &lockedBuffer{}
	return &TestLogger{
		Logger: logging.NewWithWriter(buf, debug, true),
		buf:    buf,
	}
}

// GetOutput returns everything logged so far.
func (l *TestLogger) GetOutput() string {
	return l.buf.String()
}

// AssertContains asserts that the log output contains substr.
func (l *TestLogger) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, l.GetOutput(), substr, "Expected log output to contain %q", substr)
}

// AssertNotContains asserts that the log output does not contain substr.
func (l *TestLogger) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, l.GetOutput(), substr, "Expected log output to NOT contain %q", substr)
}

// AssertLogCount asserts how many lines were logged at level
// ("info", "warn", "error" or "debug").
func (l *TestLogger) AssertLogCount(t *testing.T, level string, count int) {
	t.Helper()

	var marker string
	switch level {
	case "info":
		marker = "✓"
	case "warn":
		marker = "⚠"
	case "error":
		marker = "✗"
	case "debug":
		marker = "[DEBUG]"
	default:
		t.Fatalf("Unknown log level: %s", level)
	}

	actual := 0
	for _, line := range strings.Split(l.GetOutput(), "\n") {
		if strings.HasPrefix(line, marker) {
			actual++
		}
	}
	assert.Equal(t, count, actual, "Expected %d %s lines", count, level)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
