package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Redacted replaces the value of secret attributes.
const Redacted = "***"

// SecretKeys are attribute keys whose values never reach a log sink.
var SecretKeys = []string{"password", "accessCode", "token", "cookie", "cookies"}

// ContextProvider returns attributes computed at log time, such as the
// backend URL of the current invocation.
type ContextProvider func() []slog.Attr

// MultiHandler writes every record to each enabled sink.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler drops nil sinks and fans out to the rest.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, h := range sinks {
		if h != nil {
			m.sinks = append(m.sinks, h)
		}
	}
	return m
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every sink even when some of them fail, and reports
// the joined failures.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		errs = append(errs, h.Handle(ctx, r.Clone()))
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := &MultiHandler{sinks: make([]slog.Handler, len(m.sinks))}
	for i, h := range m.sinks {
		out.sinks[i] = fn(h)
	}
	return out
}

// RedactHandler masks secret attributes and appends the context attributes
// before passing records on.
type RedactHandler struct {
	inner   slog.Handler
	context ContextProvider
	secrets map[string]struct{}
}

// NewRedactHandler wraps inner. Keys are matched case-insensitively.
func NewRedactHandler(inner slog.Handler, provider ContextProvider, keys ...string) *RedactHandler {
	secrets := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		secrets[strings.ToLower(k)] = struct{}{}
	}
	return &RedactHandler{inner: inner, context: provider, secrets: secrets}
}

func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	if h.context != nil {
		for _, a := range h.context() {
			out.AddAttrs(h.redact(a))
		}
	}
	return h.inner.Handle(ctx, out)
}

func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redact(a)
	}
	return &RedactHandler{inner: h.inner.WithAttrs(masked), context: h.context, secrets: h.secrets}
}

func (h *RedactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &RedactHandler{inner: h.inner.WithGroup(name), context: h.context, secrets: h.secrets}
}

func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	if _, secret := h.secrets[strings.ToLower(a.Key)]; secret {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = h.redact(g)
		}
		return slog.Group(a.Key, masked...)
	}
	return a
}
