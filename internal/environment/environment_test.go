package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/storepath"
	"github.com/unnix/unnix/internal/store"
)

func TestBuildExpandsPlaceholdersAndPrefixes(t *testing.T) {
	t.Setenv("PATH", "")
	storeDir := t.TempDir()
	s := &store.Store{Dir: storeDir}

	p, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	binDir := filepath.Join(s.PathFor(p), "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))

	sm := manifest.SystemManifest{
		Packages: map[string]manifest.Package{"hello": {Attribute: "hello", Outputs: []string{"out"}}},
		Env:      map[string]string{"HELLO_PREFIX": "{hello.out}"},
	}
	pkgs := lockfile.Packages{
		"hello": {Outputs: map[string]storepath.Path{"out": p}},
	}

	vars, err := Build(s, sm, pkgs)
	require.NoError(t, err)

	byName := make(map[string]string)
	for _, v := range vars {
		byName[v.Name] = v.Value
	}
	assert.Equal(t, s.PathFor(p), byName["HELLO_PREFIX"])
	assert.Equal(t, binDir, byName["PATH"])
}

func TestBuildAppendsPreexistingVariable(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	s := &store.Store{Dir: t.TempDir()}

	p, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	binDir := filepath.Join(s.PathFor(p), "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))

	sm := manifest.SystemManifest{Packages: map[string]manifest.Package{"hello": {Attribute: "hello"}}}
	pkgs := lockfile.Packages{"hello": {Outputs: map[string]storepath.Path{"out": p}}}

	vars, err := Build(s, sm, pkgs)
	require.NoError(t, err)

	byName := make(map[string]string)
	for _, v := range vars {
		byName[v.Name] = v.Value
	}
	assert.Equal(t, binDir+string(os.PathListSeparator)+"/usr/bin", byName["PATH"])
}

func TestBuildOrdersPrefixVarsBeforeUserVars(t *testing.T) {
	t.Setenv("PATH", "")
	s := &store.Store{Dir: t.TempDir()}

	p, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	require.NoError(t, os.MkdirAll(filepath.Join(s.PathFor(p), "bin"), 0755))

	sm := manifest.SystemManifest{
		Packages: map[string]manifest.Package{"hello": {Attribute: "hello"}},
		Env:      map[string]string{"GREETING": "hi"},
	}
	pkgs := lockfile.Packages{"hello": {Outputs: map[string]storepath.Path{"out": p}}}

	vars, err := Build(s, sm, pkgs)
	require.NoError(t, err)

	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}
	require.Contains(t, names, "PATH")
	require.Contains(t, names, "GREETING")

	var pathIdx, greetingIdx int
	for i, n := range names {
		if n == "PATH" {
			pathIdx = i
		}
		if n == "GREETING" {
			greetingIdx = i
		}
	}
	assert.Less(t, pathIdx, greetingIdx)
}

func TestBuildExtendsPathsWithPropagatedInputs(t *testing.T) {
	t.Setenv("PATH", "")
	s := &store.Store{Dir: t.TempDir()}

	root, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	dep, _ := storepath.FromBare("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-glibc")
	require.NoError(t, os.MkdirAll(filepath.Join(s.PathFor(root), "bin"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(s.PathFor(dep), "bin"), 0755))
	require.NoError(t, s.RecordReferences(root, []storepath.Path{dep}))

	sm := manifest.SystemManifest{Packages: map[string]manifest.Package{"hello": {Attribute: "hello"}}}
	pkgs := lockfile.Packages{"hello": {Outputs: map[string]storepath.Path{"out": root}}}

	vars, err := Build(s, sm, pkgs)
	require.NoError(t, err)

	var path string
	for _, v := range vars {
		if v.Name == "PATH" {
			path = v.Value
		}
	}
	assert.Contains(t, path, s.PathFor(root))
	assert.Contains(t, path, s.PathFor(dep))
}

func TestBuildRejectsUnknownPlaceholder(t *testing.T) {
	s := &store.Store{Dir: t.TempDir()}
	sm := manifest.SystemManifest{Env: map[string]string{"X": "{missing.out}"}}
	_, err := Build(s, sm, lockfile.Packages{})
	assert.Error(t, err)
}
