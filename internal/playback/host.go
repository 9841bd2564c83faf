package playback

import (
	"errors"
	"fmt"

	"github.com/rictusempra/replayer/pkg/core"
)

// Handle is an opaque reference to a live actor owned by the host.
type Handle any

// Host is the rendering side of playback. The driver calls it on the
// goroutine that calls Advance; implementations need not be thread-safe.
type Host interface {
	// Spawn instantiates the archetype for className at an engine-space
	// position. It returns an error, typically *ResolutionError, when the
	// class cannot be resolved.
	Spawn(className string, position core.Vector3) (Handle, error)

	// SetTransform moves and orients a live actor. Rotation is in euler degrees.
	SetTransform(h Handle, position, eulerDegrees core.Vector3)

	// Destroy releases a live actor.
	Destroy(h Handle)

	// Report receives anomalies met during playback.
	Report(message string)
}

// ErrUnresolvedClass is matched by every *ResolutionError
var ErrUnresolvedClass = errors.New("unresolved class")

// ResolutionError is returned by a Host when a class name maps to no archetype.
type ResolutionError struct {
	ClassName string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("attempted to spawn unknown class: %s", e.ClassName)
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrUnresolvedClass
}
