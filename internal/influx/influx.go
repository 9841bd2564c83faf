package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/pkg/core"
	"github.com/rs/zerolog"
)

// FrameMeasurement is the measurement written once per applied frame
const FrameMeasurement = "playback_frame"

// ErrDisabled is returned by Connect when influx.enabled is false
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes. When the server cannot
// be reached, points are appended as line protocol to a gzip backup file.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		Logger:     log,
		BackupPath: backupPath,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the backup
// file if the server does not answer a ping.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err == nil && running {
		m.IsValid = true
		m.createWriter()
		m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
		return nil
	}

	m.IsValid = false
	m.Client.Close()
	m.Client = nil

	if m.BackupPath == "" {
		return fmt.Errorf("influxDB unreachable and no backup path set: %v", err)
	}

	m.Logger.Warn().Str("backupPath", m.BackupPath).
		Msg("Failed to initialize InfluxDB client, writing to backup file")

	file, ferr := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if ferr != nil {
		return fmt.Errorf("error creating backup file: %w", ferr)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func(bucket string) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.cfg.Bucket)

	m.Logger.Debug().Str("bucket", m.cfg.Bucket).Msg("InfluxDB writer created")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Flush sends buffered points.
func (m *Manager) Flush() error {
	if m.IsValid {
		m.Writer.Flush()
		return nil
	}
	if m.BackupWriter != nil {
		return m.BackupWriter.Flush()
	}
	return nil
}

// Close flushes pending writes and releases the client or backup file.
func (m *Manager) Close() error {
	if m.Client != nil {
		m.Client.Close()
		m.Client = nil
	}

	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			return fmt.Errorf("error closing backup writer: %w", err)
		}
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		err := m.backupFile.Close()
		m.backupFile = nil
		return err
	}
	return nil
}

// FramePoint builds the playback_frame point for an applied frame.
func FramePoint(sessionID string, f *core.AppliedFrame, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		FrameMeasurement,
		map[string]string{"session": sessionID},
		map[string]interface{}{
			"frame":      f.Index,
			"replayTime": f.Time,
			"delta":      f.Delta,
			"spawned":    len(f.Spawned),
			"transforms": len(f.Transforms),
			"destroyed":  len(f.Destroyed),
			"anomalies":  len(f.Anomalies),
		},
		at,
	)
}
