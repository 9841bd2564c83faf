package parser

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rictusempra/replayer/internal/geo"
	"github.com/rictusempra/replayer/pkg/core"
)

// gzipMagic prefixes every gzip stream
var gzipMagic = []byte{0x1f, 0x8b}

// document is the top-level replay JSON object
type document struct {
	Frames []core.Frame `json:"frames"`
}

// Parser converts serialized replays into core.Replay values.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse decodes a JSON replay payload and validates it.
// Schema violations return *ParseError; a replay without spawns returns ErrEmptyReplay.
func (p *Parser) Parse(payload []byte) (*core.Replay, error) {
	var doc document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, wrapDecodeError(err)
	}

	if err := validate(doc.Frames); err != nil {
		return nil, err
	}

	replay := core.NewReplay(doc.Frames)
	if !replay.HasSpawns() {
		return nil, ErrEmptyReplay
	}

	p.logger.Debug("Parsed replay",
		"frames", replay.Len(),
		"bytes", len(payload))

	return replay, nil
}

// ParseFile reads a replay from disk. Gzip-compressed files are detected by
// their magic bytes and decompressed before parsing.
func (p *Parser) ParseFile(path string) (*core.Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading replay file: %w", err)
	}

	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		defer zr.Close()

		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("error decompressing replay file: %w", err)
		}
	}

	p.logger.Debug("Read replay file", "path", path, "bytes", len(data))
	return p.Parse(data)
}

// wrapDecodeError turns a json decoding error into a *ParseError, keeping
// the position information the decoder reported.
func wrapDecodeError(err error) *ParseError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		return &ParseError{Offset: syntaxErr.Offset, Err: err}
	case errors.As(err, &typeErr):
		return &ParseError{Offset: typeErr.Offset, Field: typeErr.Field, Err: err}
	default:
		return &ParseError{Err: err}
	}
}

// validate checks the constraints JSON decoding cannot express.
func validate(frames []core.Frame) error {
	for fi, f := range frames {
		for ui, u := range f.Updated {
			for ci, c := range u.Components {
				if err := geo.ValidateRotLimit(c.RotLimit); err != nil {
					return &ParseError{
						Field: fmt.Sprintf("frames[%d].updated[%d].components[%d].rotLimit", fi, ui, ci),
						Err:   err,
					}
				}
			}
		}
	}
	return nil
}
