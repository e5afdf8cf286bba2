package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// Syslog severities used on the GELF wire.
const (
	gelfLevelError int32 = 3
	gelfLevelWarn  int32 = 4
	gelfLevelInfo  int32 = 6
	gelfLevelDebug int32 = 7
)

// GelfHandler ships records to a Graylog GELF endpoint over UDP.
type GelfHandler struct {
	writer *gelf.Writer
	level  slog.Level
	host   string
	prefix string      // dotted group path applied to record attrs
	attrs  []slog.Attr // bound attrs, keys already prefixed
}

// NewGelfHandler connects to the given Graylog address.
func NewGelfHandler(address string, level slog.Level) (*GelfHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{writer: w, level: level, host: host}, nil
}

// Enabled reports whether records at this level are shipped.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record into a GELF message and writes it out.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.prefix, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Extra:    extra,
	})
}

// WithAttrs returns a handler with the attributes bound under the current
// group prefix.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

// WithGroup returns a handler that prefixes subsequent attribute keys.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.prefix = h.prefix + name + "."
	return &nh
}

// addExtra flattens an attribute into GELF additional fields. Field names
// must carry a leading underscore on the wire.
func addExtra(extra map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addExtra(extra, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	extra["_"+prefix+a.Key] = a.Value.Any()
}

func syslogLevel(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return gelfLevelError
	case level >= slog.LevelWarn:
		return gelfLevelWarn
	case level >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
