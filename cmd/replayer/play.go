package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/logging"
	"github.com/rictusempra/replayer/internal/parser"
	"github.com/rictusempra/replayer/internal/playback"
	"github.com/rictusempra/replayer/internal/scene"
	"github.com/rictusempra/replayer/internal/storage"
	"github.com/rictusempra/replayer/pkg/core"
)

// playResult totals one session for the closing summary.
type playResult struct {
	SessionID  string
	Frames     int
	Spawned    int
	Transforms int
	Destroyed  int
	Anomalies  int
	Live       int
	Reports    int
	ExportPath string
	Stopped    bool
}

func (r *playResult) add(f *core.AppliedFrame) {
	r.Frames++
	r.Spawned += f.ResolvedSpawns()
	r.Transforms += len(f.Transforms)
	r.Destroyed += len(f.Destroyed)
	r.Anomalies += len(f.Anomalies)
}

func (r *playResult) print(w io.Writer) {
	fmt.Fprintf(w, "session:    %s\n", r.SessionID)
	fmt.Fprintf(w, "frames:     %d\n", r.Frames)
	fmt.Fprintf(w, "spawned:    %d\n", r.Spawned)
	fmt.Fprintf(w, "transforms: %d\n", r.Transforms)
	fmt.Fprintf(w, "destroyed:  %d\n", r.Destroyed)
	fmt.Fprintf(w, "anomalies:  %d (%d reported)\n", r.Anomalies, r.Reports)
	fmt.Fprintf(w, "live:       %d\n", r.Live)
	if r.ExportPath != "" {
		fmt.Fprintf(w, "export:     %s\n", r.ExportPath)
	}
	if r.Stopped {
		fmt.Fprintln(w, "playback interrupted")
	}
}

// play runs path through a scene at the configured tick rate and journals
// every applied frame to the configured storage.
func (a *app) play(ctx context.Context, path string, stdout io.Writer) error {
	replay, err := parser.NewParser(a.logger).ParseFile(path)
	if err != nil {
		return err
	}

	archetypes, err := config.GetArchetypes()
	if err != nil {
		return err
	}

	var driver *playback.Driver
	logger := frameLogger(a.logger, func() *playback.Driver { return driver })

	sc := scene.New(scene.NewRegistry(archetypes), logger)
	driver, err = playback.New(sc, logger)
	if err != nil {
		return err
	}

	// backends may log from their own goroutines
	backend := a.openStorage(a.logger)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	session := &core.Session{
		ID:         uuid.NewString(),
		Source:     path,
		FrameCount: replay.Len(),
		StartedAt:  time.Now().UTC(),
	}
	if err := backend.StartSession(session); err != nil {
		logger.Error("Failed to start storage session", "error", err)
	}

	result := &playResult{SessionID: session.ID}
	driver.Reset(replay)

	interval := config.GetTickInterval()
	logger.Info("Playback started", "session", session.ID, "source", path, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	err = driver.Run(ctx, ticker.C, func(f *core.AppliedFrame) error {
		result.add(f)
		return backend.RecordFrame(f)
	})
	switch {
	case errors.Is(err, context.Canceled):
		result.Stopped = true
		logger.Warn("Playback interrupted", "remaining", driver.Remaining())
	case err != nil:
		return err
	}

	if err := backend.EndSession(); err != nil {
		logger.Error("Failed to end storage session", "error", err)
	}
	if a.otel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otel.Flush(flushCtx); err != nil {
			logger.Warn("Failed to flush OTel logs", "error", err)
		}
		cancel()
	}

	result.Live = len(driver.LiveActors())
	result.Reports = len(sc.Reports())
	if exp, ok := backend.(storage.Exporter); ok {
		result.ExportPath = exp.LastExportPath()
	}

	logger.Info("Playback finished",
		"session", session.ID,
		"frames", result.Frames,
		"anomalies", result.Anomalies)

	result.print(stdout)
	return nil
}

// frameLogger returns a logger whose records carry the current frame of the
// driver returned by current. Records logged before the driver exists carry
// no frame.
func frameLogger(base *slog.Logger, current func() *playback.Driver) *slog.Logger {
	return logging.WithContext(base, func() []slog.Attr {
		d := current()
		if d == nil {
			return nil
		}
		return []slog.Attr{slog.Int("frame", d.Position())}
	})
}

// openStorage builds and initializes the configured backend. Combined
// backends keep the members that initialized; when nothing is left the
// journal is replaced by storage.Discard so playback still runs.
func (a *app) openStorage(logger *slog.Logger) storage.Backend {
	cfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(cfg, storage.Dependencies{
		Logger:           logger,
		DBLogger:         logging.NewZerolog(a.logWriter(), a.level),
		DB:               config.GetDBConfig(),
		Influx:           config.GetInfluxConfig(),
		InfluxBackupPath: a.backupPath(),
	})
	if err != nil {
		logger.Error("Failed to create storage backend", "type", cfg.Type, "error", err)
		return storage.Discard{}
	}

	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "type", cfg.Type, "error", err)

		multi, ok := backend.(*storage.Multi)
		if !ok || len(multi.Backends()) == 0 {
			_ = backend.Close()
			return storage.Discard{}
		}
		logger.Warn("Continuing with the storage backends that initialized",
			"remaining", len(multi.Backends()))
		return multi
	}

	logger.Info("Storage backend initialized", "type", cfg.Type)
	return backend
}
