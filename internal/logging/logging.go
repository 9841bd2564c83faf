// Package logging builds the replayer's loggers: slog for the application,
// with file, OTel and Graylog sinks, and zerolog for the storage layers.
package logging

import (
	"path/filepath"
	"time"
)

// logStamp is the timestamp layout used in log and backup file names.
const logStamp = "20060102_150405"

// LogFilePath names the log file of a run started at start, for example
// logs/replayer.20260301_123045.log.
func LogFilePath(logsDir, appName string, start time.Time) string {
	return filepath.Join(logsDir, appName+"."+start.Format(logStamp)+".log")
}
