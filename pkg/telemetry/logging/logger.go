package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
)

// Log output formats.
const (
	// FormatText outputs logs as human-readable key=value lines.
	FormatText = "text"
	// FormatJSON outputs logs as one JSON object per line.
	FormatJSON = "json"
)

// Setup configures the process logger from the logging section. Records
// pass through credential redaction and the returned Ring before
// reaching w in the configured format, and every *Context call picks up
// the request-scoped fields stored in the context. The logger is
// installed as the slog default.
func Setup(cfg config.LoggingConfig, w io.Writer) (*Ring, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	switch cfg.Format {
	case FormatJSON:
		inner = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		inner = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	ring := NewRing(cfg.BufferSize)
	slog.SetDefault(slog.New(NewHandler(inner, ring)))
	return ring, nil
}

// ParseLevel parses a log level name. An empty name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

// Handler wraps an output handler with credential redaction, context
// field extraction and ring capture.
type Handler struct {
	inner    slog.Handler
	ring     *Ring
	redactor *Redactor

	// groups and bound mirror what the inner handler accumulated, so
	// ring entries include attributes attached with With and WithGroup.
	groups []string
	bound  map[string]any
}

// NewHandler wraps inner. A nil ring disables capture.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	return &Handler{
		inner:    inner,
		ring:     ring,
		redactor: NewRedactor(),
	}
}

// Enabled reports whether the wrapped handler records at this level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle redacts the record, captures it and forwards it.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	var captured map[string]any
	if h.ring != nil {
		captured = make(map[string]any, len(h.bound)+record.NumAttrs())
		for key, value := range h.bound {
			captured[key] = value
		}
	}

	capture := func(attr slog.Attr) {
		attr = h.redactAttr(attr)
		clean.AddAttrs(attr)
		if captured != nil {
			captured[h.qualify(attr.Key)] = attr.Value.Any()
		}
	}

	record.Attrs(func(attr slog.Attr) bool {
		capture(attr)
		return true
	})
	for _, attr := range contextAttrs(ctx) {
		capture(attr)
	}

	if h.ring != nil {
		h.ring.Add(Entry{
			Time:     record.Time,
			Level:    record.Level.String(),
			Message:  record.Message,
			Attrs:    captured,
			severity: record.Level,
		})
	}

	return h.inner.Handle(ctx, clean)
}

// WithAttrs returns a handler with the attributes bound, redacted once
// at bind time.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	redacted := make([]slog.Attr, len(attrs))
	bound := make(map[string]any, len(h.bound)+len(attrs))
	for key, value := range h.bound {
		bound[key] = value
	}
	for i, attr := range attrs {
		redacted[i] = h.redactAttr(attr)
		bound[h.qualify(redacted[i].Key)] = redacted[i].Value.Any()
	}

	return &Handler{
		inner:    h.inner.WithAttrs(redacted),
		ring:     h.ring,
		redactor: h.redactor,
		groups:   h.groups,
		bound:    bound,
	}
}

// WithGroup returns a handler that qualifies subsequent keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	groups := make([]string, len(h.groups)+1)
	copy(groups, h.groups)
	groups[len(h.groups)] = name

	return &Handler{
		inner:    h.inner.WithGroup(name),
		ring:     h.ring,
		redactor: h.redactor,
		groups:   groups,
		bound:    h.bound,
	}
}

// qualify prefixes a key with the open group path for ring capture.
func (h *Handler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

// redactAttr masks credential values. Sensitive key names are masked
// whatever the value shape; string and error values are additionally
// scanned for token-shaped substrings.
func (h *Handler) redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		members := attr.Value.Group()
		out := make([]slog.Attr, len(members))
		for i, member := range members {
			out[i] = h.redactAttr(member)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(out...)}
	}

	if IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, RedactValue(attr.Value.String()))
	}

	switch attr.Value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, h.redactor.RedactString(attr.Value.String()))
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok {
			return slog.String(attr.Key, h.redactor.RedactString(err.Error()))
		}
	}

	return attr
}
