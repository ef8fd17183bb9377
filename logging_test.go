package filters

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	buf.Reset()
	return line
}

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Log(LogEvent{Op: OpInitialize, Count: 3, Duration: time.Millisecond})
	line := decodeLogLine(t, &buf)
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "filters", line["msg"])
	assert.Equal(t, "initialize", line["op"])
	assert.EqualValues(t, 3, line["count"])
	assert.NotContains(t, line, "error")

	logger.Log(LogEvent{Op: OpEvaluate, Filter: "status", Engine: "cel", Expr: "false", Err: errors.New("boom")})
	line = decodeLogLine(t, &buf)
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "cel", line["engine"])
	assert.Equal(t, "false", line["expr"])
	assert.Equal(t, "boom", line["error"])
}

func TestSlogLoggerRespectsHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Log(LogEvent{Op: OpAdd, Filter: "status"})
	assert.Zero(t, buf.Len(), "debug events are filtered at info level")

	logger.Log(LogEvent{Op: OpAdd, Filter: "status", Err: ErrFilterActive})
	assert.Contains(t, buf.String(), "op=add")
}

func TestLoggerFuncAndNoop(t *testing.T) {
	var got []Op
	LoggerFunc(func(event LogEvent) { got = append(got, event.Op) }).Log(LogEvent{Op: OpApply})
	assert.Equal(t, []Op{OpApply}, got)

	assert.NotPanics(t, func() {
		var nilFunc LoggerFunc
		nilFunc.Log(LogEvent{Op: OpApply})
		noopLogger{}.Log(LogEvent{Op: OpApply})
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseLevel(input), input)
	}
}

func TestNewFileLoggerRequiresPath(t *testing.T) {
	_, _, err := NewFileLogger(LogFileConfig{})
	assert.Error(t, err)
}

func TestServiceLogsThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	svc := New(NewCatalogue(testSchemas()), WithLogger(logger))
	t.Cleanup(svc.Close)

	_, err := svc.Add(testRef("status"))
	require.NoError(t, err)
	line := decodeLogLine(t, &buf)
	assert.Equal(t, "add", line["op"])
	assert.Equal(t, testFilterPrefix+"status", line["filter"])
}
