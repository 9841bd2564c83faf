// pkg/core/types.go
package core

// Vector3 is a position or rotation triple. Raw triples are in recording
// units; remapped triples are in engine units (or degrees for rotations).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scale multiplies every component by f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}
