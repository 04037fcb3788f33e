package observability

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeyParts lists lowercase fragments of attribute keys whose values must never be logged.
var sensitiveKeyParts = []string{"secret", "private", "priv", "psk", "password"}

var noopLogger *slog.Logger

// NoopLogger returns a disabled Logger
func NoopLogger() *slog.Logger {
	return noopLogger
}

func init() {
	hdlr := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})
	noopLogger = slog.New(hdlr)
}

// RedactingHandler is a slog.Handler that masks the value of attributes whose key looks sensitive,
// before passing records to the wrapped Handler.
type RedactingHandler struct {
	next slog.Handler
}

// NewRedactingHandler returns a RedactingHandler wrapping next.
// It returns nil if next is nil.
func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	if nil == next {
		return nil
	}
	return &RedactingHandler{next: next}
}

// Enabled implements slog.Handler.
func (self *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return self.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (self *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(RedactAttr(attr))
		return true
	})
	return self.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (self *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, RedactAttr(attr))
	}
	return &RedactingHandler{next: self.next.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (self *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: self.next.WithGroup(name)}
}

// RedactAttr returns attr with its value masked if attr key is sensitive.
// Group attributes are processed recursively.
func RedactAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, redacted)
	}
	value := attr.Value.Resolve()
	if slog.KindGroup == value.Kind() {
		members := value.Group()
		clean := make([]any, 0, len(members))
		for _, member := range members {
			clean = append(clean, RedactAttr(member))
		}
		return slog.Group(attr.Key, clean...)
	}

	return slog.Attr{Key: attr.Key, Value: value}
}

func isSensitiveKey(key string) bool {
	lkey := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lkey, part) {
			return true
		}
	}
	return false
}

var _ slog.Handler = &RedactingHandler{}
