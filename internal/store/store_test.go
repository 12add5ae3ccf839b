package store

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnix/unnix/internal/archive"
	"github.com/unnix/unnix/internal/storepath"
)

func TestContainsFalseForMissingPath(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	p, err := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	require.NoError(t, err)
	assert.False(t, s.Contains(p))
}

func TestUnpackNarIsIdempotent(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	p, err := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	require.NoError(t, err)

	// An empty "none"-compressed NAR stream is invalid, so force
	// Contains() to already report true and confirm the body is
	// never touched on the idempotent path.
	require.NoError(t, s.putReferences(p, nil))
	require.NoError(t, os.MkdirAll(s.pathDir(p), 0755))

	err = s.UnpackNar(p, archive.None, bytes.NewReader(nil), nil)
	require.NoError(t, err)
}

func TestReferencesRoundTrip(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	p, err := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	require.NoError(t, err)
	r1, _ := storepath.FromBare("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep1")
	r2, _ := storepath.FromBare("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb-dep2")

	require.NoError(t, s.putReferences(p, []storepath.Path{r1, r2}))

	got, err := s.References(p)
	require.NoError(t, err)
	assert.ElementsMatch(t, []storepath.Path{r1, r2}, got)
}

func TestReferencesMissingReturnsEmpty(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	p, err := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello")
	require.NoError(t, err)

	refs, err := s.References(p)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestPropagatedClosureWalksTransitively(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	root, _ := storepath.FromBare("zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-root")
	dep, _ := storepath.FromBare("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-dep")
	transitive, _ := storepath.FromBare("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb-transitive")

	require.NoError(t, s.putReferences(root, []storepath.Path{dep}))
	require.NoError(t, s.putReferences(dep, []storepath.Path{transitive}))

	closure, err := s.PropagatedClosure([]storepath.Path{root})
	require.NoError(t, err)
	assert.ElementsMatch(t, []storepath.Path{root, dep, transitive}, closure)
}
