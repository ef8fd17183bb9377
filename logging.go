package filters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Op names the operation a LogEvent describes.
type Op string

const (
	OpAdd        Op = "add"
	OpRemove     Op = "remove"
	OpReplace    Op = "replace"
	OpInitialize Op = "initialize"
	OpResolve    Op = "resolve"
	OpApply      Op = "apply"
	OpEvaluate   Op = "evaluate"
	OpActivity   Op = "activity"
)

// LogEvent describes one service or evaluator operation.
type LogEvent struct {
	Op       Op
	Filter   string
	Engine   string
	Expr     string
	Count    int
	Duration time.Duration
	Err      error
}

// Logger records service events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

type slogLogger struct {
	logger *slog.Logger
}

// SlogLogger forwards events to l. Failed operations log at warn level,
// everything else at debug.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{logger: l}
}

func (s slogLogger) Log(event LogEvent) {
	attrs := []slog.Attr{slog.String("op", string(event.Op))}
	if event.Filter != "" {
		attrs = append(attrs, slog.String("filter", event.Filter))
	}
	if event.Engine != "" {
		attrs = append(attrs, slog.String("engine", event.Engine))
	}
	if event.Expr != "" {
		attrs = append(attrs, slog.String("expr", event.Expr))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	s.logger.LogAttrs(context.Background(), level, "filters", attrs...)
}

// LogFileConfig describes a rotating log file.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// NewFileLogger builds a slog logger writing to a rotating file. The returned
// closer releases the file.
func NewFileLogger(cfg LogFileConfig) (*slog.Logger, io.Closer, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, nil, fmt.Errorf("filters: log file path must not be empty")
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return slog.New(newHandler(file, cfg.Format, parseLevel(cfg.Level))), file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
