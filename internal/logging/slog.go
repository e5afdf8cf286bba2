package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Stdout seams for tests.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// Options configures Setup.
type Options struct {
	// Level is one of debug/info/warn/error, case-insensitive.
	Level string
	// File receives the text log. When nil, records go to stdout instead.
	File io.Writer
	// GelfAddress enables the Graylog handler when non-empty.
	GelfAddress string
	// Context, when set, stamps every record with dynamic attributes.
	Context ContextProvider
	// Provider, when set, bridges records into the OTel log pipeline.
	Provider *sdklog.LoggerProvider
}

// SlogManager manages slog-based logging with optional Graylog and OTel
// outputs.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. The text handler writes to the file
// when one is given, to stdout otherwise, never both.
func (m *SlogManager) Setup(opts Options) error {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if opts.GelfAddress != "" {
		gh, err := NewGelfHandler(opts.GelfAddress, lvl)
		if err != nil {
			return fmt.Errorf("graylog handler: %w", err)
		}
		handlers = append(handlers, gh)
	}

	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler("shellfall-engine",
			otelslog.WithLoggerProvider(opts.Provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		handler = NewContextHandler(handler, opts.Context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("logging initialized", "level", opts.Level)
	return nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
