package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const colorReset = "\033[0m"

var levelColors = map[LogLevel]string{
	DEBUG: "\033[34m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const colorDim = "\033[90m"

// consoleSink is the writer shared by a ConsoleLogger and its derived loggers
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// ConsoleLogger writes one human-readable line per entry:
//
//	2024-05-01 10:00:00 INFO  [1a2b3c4d] Uploaded file path=/src/a.txt size="10 B"
type ConsoleLogger struct {
	sink      *consoleSink
	levelMu   sync.RWMutex
	level     LogLevel
	traceID   string
	color     bool
	timestamp bool
	redact    bool
	now       func() time.Time
}

// ConsoleLoggerConfig configures NewConsoleLogger; Writer defaults to stderr
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

// NewConsoleLogger creates a console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{
		sink:      &consoleSink{w: w},
		level:     config.Level,
		color:     config.ColorEnabled,
		timestamp: config.TimestampEnabled,
		redact:    config.RedactSensitive,
		now:       time.Now,
	}
}

func (l *ConsoleLogger) enabled(level LogLevel) bool {
	l.levelMu.RLock()
	defer l.levelMu.RUnlock()
	return level >= l.level
}

func (l *ConsoleLogger) paint(sb *strings.Builder, color, text string) {
	if l.color && color != "" {
		sb.WriteString(color)
		sb.WriteString(text)
		sb.WriteString(colorReset)
		return
	}
	sb.WriteString(text)
}

func (l *ConsoleLogger) format(level LogLevel, msg string, fields []Field) string {
	if l.redact {
		msg = Redact(msg)
		fields = redactFields(fields)
	}

	var sb strings.Builder
	if l.timestamp {
		l.paint(&sb, colorDim, l.now().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	l.paint(&sb, levelColors[level], fmt.Sprintf("%-5s", level.String()))
	sb.WriteByte(' ')
	if l.traceID != "" {
		l.paint(&sb, colorDim, "["+shortTraceID(l.traceID)+"]")
		sb.WriteByte(' ')
	}
	sb.WriteString(msg)
	for _, f := range fields {
		sb.WriteByte(' ')
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(fieldValue(f.Value))
	}
	return sb.String()
}

// fieldValue renders a value in logfmt style, quoting when it would not
// survive splitting on spaces
func fieldValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func shortTraceID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields []Field) {
	if !l.enabled(level) {
		return
	}
	line := l.format(level, msg, fields)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = fmt.Fprintln(l.sink.w, line)
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields) }

// WithTraceID returns a logger sharing the same writer with traceID set
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	l.levelMu.RLock()
	defer l.levelMu.RUnlock()
	return &ConsoleLogger{
		sink:      l.sink,
		level:     l.level,
		traceID:   traceID,
		color:     l.color,
		timestamp: l.timestamp,
		redact:    l.redact,
		now:       l.now,
	}
}

// WithContext picks up the trace ID stored on ctx
func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		return l.WithTraceID(traceID)
	}
	return l
}

func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.levelMu.Lock()
	defer l.levelMu.Unlock()
	l.level = level
}

// Close is a no-op; the writer belongs to the caller
func (l *ConsoleLogger) Close() error { return nil }
