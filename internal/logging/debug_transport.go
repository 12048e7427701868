package logging

import (
	"net/http"
	"time"
)

// DebugTransport logs every HTTP round trip made through it at DEBUG level.
// Request and response bodies are never read.
type DebugTransport struct {
	Base   http.RoundTripper
	Logger Logger
}

// NewDebugTransport wraps base (http.DefaultTransport when nil)
func NewDebugTransport(base http.RoundTripper, logger Logger) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &DebugTransport{Base: base, Logger: logger}
}

// RoundTrip implements http.RoundTripper
func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.Logger.WithContext(req.Context())
	start := time.Now()

	resp, err := t.Base.RoundTrip(req)
	fields := []Field{
		F("method", req.Method),
		F("url", req.URL.Redacted()),
		F("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		logger.Debug("HTTP request failed", append(fields, F("error", err.Error()))...)
		return nil, err
	}
	fields = append(fields, F("status", resp.StatusCode))
	if resp.ContentLength >= 0 {
		fields = append(fields, Size("contentLength", resp.ContentLength))
	}
	logger.Debug("HTTP request", fields...)
	return resp, nil
}

// NewDebugLoggerWithTransport builds a logger and, when EnableDebug is set,
// a DebugTransport bound to it for the Drive HTTP client.
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	if config.EnableDebug {
		config.Level = DEBUG
	}
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, NewDebugTransport(nil, logger), nil
}
