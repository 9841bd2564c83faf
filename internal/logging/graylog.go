package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GraylogHandler sends JSON encoded records to a Graylog GELF UDP input.
type GraylogHandler struct {
	slog.Handler
	writer *gelf.Writer
}

// NewGraylogHandler dials addr and returns a handler at level.
// Close releases the UDP socket.
func NewGraylogHandler(addr, level string) (*GraylogHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF writer for %s: %w", addr, err)
	}
	w.Facility = otelScope

	return &GraylogHandler{
		Handler: slog.NewJSONHandler(w, handlerOptions(level)),
		writer:  w,
	}, nil
}

// Close closes the underlying GELF writer.
func (h *GraylogHandler) Close() error {
	return h.writer.Close()
}
