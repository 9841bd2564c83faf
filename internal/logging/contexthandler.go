package logging

import (
	"context"
	"log/slog"
)

// ContextProvider is evaluated for every record. The CLI uses it to stamp
// records with the frame being played. It may run on any goroutine that
// logs, so it must only read state that is safe to share.
type ContextProvider func() []slog.Attr

// ContextHandler adds the provider's attributes before delegating.
type ContextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func NewContextHandler(next slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, provider: provider}
}

// WithContext wraps logger so its records carry provider's attributes.
func WithContext(logger *slog.Logger, provider ContextProvider) *slog.Logger {
	return slog.New(NewContextHandler(logger.Handler(), provider))
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r.AddAttrs(attrs...)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewContextHandler(h.next.WithAttrs(attrs), h.provider)
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return NewContextHandler(h.next.WithGroup(name), h.provider)
}
