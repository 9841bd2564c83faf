package geo

import (
	"testing"

	"github.com/rictusempra/replayer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_Valid(t *testing.T) {
	ls, err := Track([]core.Vector3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 2},
		{X: 2, Y: 1, Z: 4},
	})
	require.NoError(t, err)

	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	last := seq.Get(2)
	assert.Equal(t, 2.0, last.X)
	assert.Equal(t, 1.0, last.Y)
	assert.Equal(t, 4.0, last.Z)
}

func TestTrack_CollapsesDuplicates(t *testing.T) {
	ls, err := Track([]core.Vector3{
		{X: 0}, {X: 0}, {X: 1}, {X: 1}, {X: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ls.Coordinates().Length())
}

func TestTrack_TooFewPoints(t *testing.T) {
	_, err := Track([]core.Vector3{{X: 1}})
	require.Error(t, err)

	_, err = Track([]core.Vector3{{X: 1}, {X: 1}})
	require.Error(t, err)

	_, err = Track(nil)
	require.Error(t, err)
}
