package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// otelScope names bridged records and the Graylog facility.
const otelScope = "replayer"

// SlogManager owns the process logger. Setup may be called again once the
// log file and telemetry are known; Logger always returns the latest.
type SlogManager struct {
	logger  *slog.Logger
	console io.Writer

	// flushed by Flush; nil when telemetry is off
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager returns a manager that logs to stderr until Setup is given
// a file. stdout is left to command output.
func NewSlogManager() *SlogManager {
	return &SlogManager{console: os.Stderr}
}

// SetConsole changes where records go when Setup has no file.
func (m *SlogManager) SetConsole(w io.Writer) {
	m.console = w
}

// parseLevel accepts slog level names in any case, with optional offsets
// such as "warn+2". Anything else means info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// handlerOptions sets level and writes timestamps as UTC RFC3339.
func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: utcTime,
	}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup rebuilds the logger. Text records go to file, or to the console
// when file is nil. A non-nil provider adds the OTel bridge; extra handlers
// (Graylog) are appended as given.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.logProvider = provider

	out := file
	if out == nil {
		out = m.console
	}

	handlers := make([]slog.Handler, 0, len(extra)+2)
	if out != nil {
		handlers = append(handlers, slog.NewTextHandler(out, handlerOptions(level)))
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(otelScope, otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, extra...)

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the logger built by the last Setup, or slog.Default
// before the first one.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records out. Without telemetry it does nothing.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}
