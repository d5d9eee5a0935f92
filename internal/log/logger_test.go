package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"railctl/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.Info("info message")
	assert.Contains(t, buf.String(), "level=info")
	assert.Contains(t, buf.String(), "info message")
	buf.Reset()

	l.Warn("warn message")
	assert.Contains(t, buf.String(), "level=warning")
	buf.Reset()

	l.Error("error message")
	assert.Contains(t, buf.String(), "level=error")
	buf.Reset()

	l.Infof("formatted %s", "message")
	assert.Contains(t, buf.String(), "formatted message")
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))
	defer SetDebug(false)

	SetDebug(false)
	l.Debug("debug message")
	assert.Empty(t, buf.String())

	SetDebug(true)
	l.Debug("debug message")
	assert.Contains(t, buf.String(), "level=debug")
	buf.Reset()

	l.Debugf("formatted %s", "debug")
	assert.Contains(t, buf.String(), "formatted debug")
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.With(F("key1", "value1"), F("key2", 123)).Info("structured message")
	output := buf.String()
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=123")
	buf.Reset()

	l.With(F("key1", "value1")).With(F("key2", 123)).Info("chained fields")
	output = buf.String()
	assert.Contains(t, output, "key1=value1")
	assert.Contains(t, output, "key2=123")
}

func TestJSONLogging(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf), WithJSON())

	l.With(F("resource", "trains"), F("count", 3)).Info("refreshed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "refreshed", entry["message"])
	assert.Equal(t, "trains", entry["resource"])
	assert.Equal(t, float64(3), entry["count"])
	assert.Contains(t, entry, "timestamp")
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	original := Default()
	Configure(WithOutput(&buf))
	defer func() { logger = original }()

	LogWithFields(F("error", fmt.Errorf("standard error").Error())).Error("error occurred")
	assert.Contains(t, buf.String(), "standard error")
	buf.Reset()

	LogWithError(errors.NewAPIError(http.StatusConflict, "in use")).Error("delete failed")
	output := buf.String()
	assert.Contains(t, output, "error_kind=api")
	assert.Contains(t, output, "status=409")
	buf.Reset()

	LogWithError(errors.NewValidationError("salary", "out of range", nil)).Warn("rejected")
	output = buf.String()
	assert.Contains(t, output, "field=salary")
	assert.Contains(t, output, "error_kind=validation")
	buf.Reset()

	cfgErr := errors.NewConfigError("bad value", "api.timeout", errors.InvalidConfig, nil)
	LogError(cfgErr, "config rejected")
	output = buf.String()
	assert.Contains(t, output, "param=api.timeout")
	assert.Contains(t, output, "config rejected")
	buf.Reset()

	LogWithError(nil).Error("nil error test")
	assert.Contains(t, buf.String(), "error=\"<nil>\"")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "railctl.log")
	original := Default()
	Configure(WithFile(path))
	defer func() {
		Default().Close()
		logger = original
	}()

	Info("file test message")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "file test message")
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(&buf))

	l.WithContext(context.Background()).Info("context message")
	assert.Contains(t, buf.String(), "context message")
}
