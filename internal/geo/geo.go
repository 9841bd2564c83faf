package geo

import (
	"errors"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rictusempra/replayer/pkg/core"
)

// ENGINE SPACE
// Recordings store positions as fixed-point-like units where 4096 units span
// 10 engine units, with Z up. The engine is Y up, so Y and Z are swapped.

const (
	// RecordingUnitsPerStep is the number of recording units per UnitStep.
	RecordingUnitsPerStep = 4096.0
	// UnitStep is the engine distance covered by RecordingUnitsPerStep.
	UnitStep = 10.0
	// FullTurn is one revolution in degrees.
	FullTurn = 360.0
)

// ErrInvalidRotLimit is returned when a rotation divisor is not positive
var ErrInvalidRotLimit = errors.New("rotation limit must be positive")

// Remap converts a raw recording position into engine space.
func Remap(raw core.Vector3) core.Vector3 {
	swapped := core.Vector3{X: raw.X, Y: raw.Z, Z: raw.Y}
	return swapped.Scale(UnitStep / RecordingUnitsPerStep)
}

// NormalizeRotation converts a raw rotation, where limit is a full turn,
// into euler degrees. Axes are not swapped.
func NormalizeRotation(raw core.Vector3, limit float64) core.Vector3 {
	return core.Vector3{
		X: raw.X / limit * FullTurn,
		Y: raw.Y / limit * FullTurn,
		Z: raw.Z / limit * FullTurn,
	}
}

// ValidateRotLimit checks that limit can be used as a full-turn divisor.
func ValidateRotLimit(limit float64) error {
	if !(limit > 0) {
		return ErrInvalidRotLimit
	}
	return nil
}

// Point converts an engine-space position into an XYZ point for storage.
func Point(v core.Vector3) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: v.X, Y: v.Y},
			Z:    v.Z,
			Type: geom.DimXYZ,
		},
	)
}

// Vector converts a stored point back into a position. Empty points yield
// the zero vector.
func Vector(p geom.Point) core.Vector3 {
	c, ok := p.Coordinates()
	if !ok {
		return core.Vector3{}
	}
	return core.Vector3{X: c.X, Y: c.Y, Z: c.Z}
}
