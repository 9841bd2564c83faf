package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// NewZerolog builds the zerolog logger used by the database and influx layers.
// Unknown levels fall back to info.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
