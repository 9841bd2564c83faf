package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/rictusempra/replayer/internal/config"
	"github.com/rictusempra/replayer/internal/parser"
	"github.com/rictusempra/replayer/internal/scene"
	"github.com/rictusempra/replayer/pkg/core"
)

// inspection is the JSON document printed by inspect.
type inspection struct {
	Source            string       `json:"source"`
	Summary           core.Summary `json:"summary"`
	KnownClasses      []string     `json:"knownClasses"`
	UnresolvedClasses []string     `json:"unresolvedClasses"`
}

// inspect parses path and prints its summary together with the class names
// the configured archetypes know. Spawned classes they cannot resolve are
// listed.
func (a *app) inspect(path string, stdout io.Writer) error {
	replay, err := parser.NewParser(a.logger).ParseFile(path)
	if err != nil {
		return err
	}

	archetypes, err := config.GetArchetypes()
	if err != nil {
		return err
	}
	registry := scene.NewRegistry(archetypes)

	out := inspection{
		Source:            path,
		Summary:           replay.Summarize(),
		KnownClasses:      registry.Classes(),
		UnresolvedClasses: []string{},
	}
	for class := range out.Summary.Classes {
		if _, ok := registry.Resolve(class); !ok {
			out.UnresolvedClasses = append(out.UnresolvedClasses, class)
		}
	}
	slices.Sort(out.UnresolvedClasses)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding summary: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}
