package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnix/unnix/internal/storepath"
)

func TestHashInputsIsDeterministic(t *testing.T) {
	type input struct {
		Attribute string
		Outputs   []string
	}
	h1, err := HashInputs(input{"hello", []string{"out"}})
	require.NoError(t, err)
	h2, err := HashInputs(input{"hello", []string{"out"}})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := HashInputs(input{"hello", []string{"dev"}})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestAddReusesUnchangedInput(t *testing.T) {
	p, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	lf := &Lockfile{Version: version, Systems: map[string]Packages{
		"x86_64-linux": {
			"hello": PackageLock{InputHash: "abc", Outputs: map[string]storepath.Path{"out": p}},
		},
	}}

	reused, ok := lf.Add("x86_64-linux", "hello", "abc")
	require.True(t, ok)
	assert.Equal(t, p, reused.Outputs["out"])

	_, ok = lf.Add("x86_64-linux", "hello", "different")
	assert.False(t, ok)

	_, ok = lf.Add("x86_64-linux", "missing", "abc")
	assert.False(t, ok)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")

	lf := &Lockfile{Version: version, Systems: make(map[string]Packages)}
	lf.Set("x86_64-linux", "hello", PackageLock{InputHash: "abc", Outputs: map[string]storepath.Path{"out": p}})

	require.NoError(t, lf.WriteDir(dir))

	loaded, err := FromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, p, loaded.Systems["x86_64-linux"]["hello"].Outputs["out"])
	assert.Equal(t, Hash("abc"), loaded.Systems["x86_64-linux"]["hello"].InputHash)
}

func TestFromDirMissingReturnsEmpty(t *testing.T) {
	lf, err := FromDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lf.Systems)
}
