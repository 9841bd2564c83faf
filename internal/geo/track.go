package geo

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rictusempra/replayer/pkg/core"
)

// Track builds an XYZ line string from an actor's successive positions.
// Consecutive duplicates are collapsed; at least two distinct points must remain.
func Track(positions []core.Vector3) (geom.LineString, error) {
	flat := make([]float64, 0, len(positions)*3)
	var last core.Vector3
	n := 0
	for i, p := range positions {
		if i > 0 && p == last {
			continue
		}
		flat = append(flat, p.X, p.Y, p.Z)
		last = p
		n++
	}

	if n < 2 {
		return geom.LineString{}, fmt.Errorf("track must have at least 2 distinct points, got %d", n)
	}

	seq := geom.NewSequence(flat, geom.DimXYZ)
	return geom.NewLineString(seq), nil
}
