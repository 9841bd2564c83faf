package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/logging"
	intOtel "github.com/rictusempra/replayer/internal/otel"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "replayer"
)

const usageText = `Usage: %s [-config DIR] <command> FILE

Commands:
  play FILE      play the replay at the configured tick rate and journal it
  inspect FILE   print a summary of the replay without playing it

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, so tests can drive the CLI.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigFileName)
	fs.Usage = func() {
		fmt.Fprintf(stderr, usageText, AppName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) != 2 {
		fs.Usage()
		return 2
	}
	command, path := strings.ToLower(rest[0]), rest[1]
	if command != "play" && command != "inspect" {
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		fs.Usage()
		return 2
	}

	a := newApp(*configDir, stderr)
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "play":
		err = a.play(ctx, path, stdout)
	case "inspect":
		err = a.inspect(path, stdout)
	}
	if err != nil {
		a.logger.Error("Command failed", "command", command, "path", path, "error", err)
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	return 0
}

// app holds the process-wide logging and telemetry state.
type app struct {
	start   time.Time
	level   string
	logs    *logging.SlogManager
	logger  *slog.Logger
	logFile *os.File
	otel    *intOtel.Provider
	graylog *logging.GraylogHandler
}

// newApp loads configuration and sets up logging. Failures here are logged
// and degrade to console logging; they never stop the command.
func newApp(configDir string, console io.Writer) *app {
	a := &app{
		start: time.Now(),
		logs:  logging.NewSlogManager(),
	}

	a.logs.SetConsole(console)
	a.logs.Setup(nil, "info", nil)
	a.logger = a.logs.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}
	a.level = config.GetString("logLevel")

	a.openLogFile()

	var fileWriter io.Writer
	if a.logFile != nil {
		fileWriter = a.logFile
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		p, err := intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    fileWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otel = p
			a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		addr := config.GetString("graylog.address")
		h, err := logging.NewGraylogHandler(addr, a.level)
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "address", addr, "error", err)
		} else {
			a.graylog = h
			extra = append(extra, h)
		}
	}

	var provider *sdklog.LoggerProvider
	if a.otel != nil {
		provider = a.otel.LoggerProvider()
	}
	a.logs.Setup(fileWriter, a.level, provider, extra...)
	a.logger = a.logs.Logger()
	a.logger.Info("Starting up...", "version", CurrentVersion, "buildDate", BuildDate)

	return a
}

func (a *app) openLogFile() {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		a.logger.Error("Failed to create logs directory", "path", logsDir, "error", err)
		return
	}

	path := logging.LogFilePath(logsDir, AppName, a.start)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		a.logger.Error("Failed to create/open log file!", "error", err, "path", path)
		return
	}
	a.logFile = f
	a.logger.Info("Logging to file", "path", path)
}

// logWriter is where non-slog loggers should write.
func (a *app) logWriter() io.Writer {
	if a.logFile != nil {
		return a.logFile
	}
	return os.Stderr
}

// backupPath names the influx fallback file for this run.
func (a *app) backupPath() string {
	return filepath.Join(
		config.GetString("logsDir"),
		fmt.Sprintf("influx_backup.%s.log.gz", a.start.Format("20060102_150405")),
	)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.logs.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "failed to shut down OTel: %v\n", err)
		}
	}
	if a.graylog != nil {
		_ = a.graylog.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
