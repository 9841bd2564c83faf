// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rictusempra/replayer/pkg/core"
)

// PlaybackExport is the root JSON structure of an exported session
type PlaybackExport struct {
	Session core.Session        `json:"session"`
	EndedAt time.Time           `json:"endedAt"`
	Totals  ExportTotals        `json:"totals"`
	Frames  []core.AppliedFrame `json:"frames"`
}

// ExportTotals sums the per-frame counts of a session. Spawns counts only
// spawns that produced a live actor.
type ExportTotals struct {
	Frames     int `json:"frames"`
	Spawns     int `json:"spawns"`
	Transforms int `json:"transforms"`
	Destroys   int `json:"destroys"`
	Anomalies  int `json:"anomalies"`
}

// exportName builds a file name from the replay source and session start
func exportName(s core.Session, compress bool) string {
	base := filepath.Base(s.Source)
	for _, ext := range []string{".gz", ".json"} {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "playback"
	}
	base = strings.NewReplacer(" ", "_", ":", "_").Replace(base)

	name := fmt.Sprintf("%s_%s", base, s.StartedAt.Format("20060102_150405"))
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// exportJSON writes the session to a JSON file, gzipped if configured
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := filepath.Join(b.cfg.OutputDir, exportName(*b.session, b.cfg.CompressOutput))

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() PlaybackExport {
	export := PlaybackExport{
		Session: *b.session,
		EndedAt: b.now().UTC(),
		Frames:  b.frames,
	}
	if export.Frames == nil {
		export.Frames = []core.AppliedFrame{}
	}

	for _, f := range b.frames {
		export.Totals.Frames++
		export.Totals.Spawns += f.ResolvedSpawns()
		export.Totals.Transforms += len(f.Transforms)
		export.Totals.Destroys += len(f.Destroyed)
		export.Totals.Anomalies += len(f.Anomalies)
	}
	return export
}

func writeJSON(path string, data PlaybackExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data PlaybackExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
