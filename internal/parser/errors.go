package parser

import (
	"errors"
	"fmt"
)

// ErrEmptyReplay is returned for a well-formed replay in which no frame spawns an actor
var ErrEmptyReplay = errors.New("replay has no spawn events")

// ParseError is returned when a payload does not decode into the replay schema.
// Offset is the byte offset of the problem and Field its path, when known.
type ParseError struct {
	Offset int64
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("parse replay: %s: %v", e.Field, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("parse replay: offset %d: %v", e.Offset, e.Err)
	default:
		return fmt.Sprintf("parse replay: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
