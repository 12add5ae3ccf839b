package resolver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnix/unnix/internal/httpclient"
	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/system"
)

func withFakeHydra(t *testing.T, calls *int) string {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"buildoutputs":{"out":{"path":"/nix/store/zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello-2.12"}}}`)
	}))
	t.Cleanup(srv.Close)

	orig := *httpclient.Underlying()
	*httpclient.Underlying() = *srv.Client()
	t.Cleanup(func() { *httpclient.Underlying() = orig })

	return srv.Listener.Addr().String()
}

func writeManifest(t *testing.T, domain string) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
hydra "default" {
    domain %q
    project "nixpkgs"
    jobset "unstable"
}

system "x86_64-linux" {
    packages {
        pkg "hello"
    }
}
`, domain)
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0644))

	m, err := manifest.Load(dir)
	require.NoError(t, err)
	return m
}

func TestResolveFetchesMissingPackages(t *testing.T) {
	var calls int
	domain := withFakeHydra(t, &calls)
	m := writeManifest(t, domain)
	sys, err := system.Parse("x86_64-linux")
	require.NoError(t, err)

	lf := newEmptyLockfile()
	require.NoError(t, Resolve(context.Background(), m, lf, sys, false))

	assert.Equal(t, 1, calls)
	entry, ok := lf.Systems["x86_64-linux"]["hello"]
	require.True(t, ok)
	assert.Contains(t, entry.Outputs, "out")
}

func TestResolveReusesUnchangedEntry(t *testing.T) {
	var calls int
	domain := withFakeHydra(t, &calls)
	m := writeManifest(t, domain)
	sys, err := system.Parse("x86_64-linux")
	require.NoError(t, err)

	lf := newEmptyLockfile()
	require.NoError(t, Resolve(context.Background(), m, lf, sys, false))
	require.Equal(t, 1, calls)

	// Second resolve with the same manifest inputs should reuse the
	// lockfile entry rather than querying Hydra again.
	require.NoError(t, Resolve(context.Background(), m, lf, sys, false))
	assert.Equal(t, 1, calls)
}

func TestResolveUnconditionalAlwaysRefetches(t *testing.T) {
	var calls int
	domain := withFakeHydra(t, &calls)
	m := writeManifest(t, domain)
	sys, err := system.Parse("x86_64-linux")
	require.NoError(t, err)

	lf := newEmptyLockfile()
	require.NoError(t, Resolve(context.Background(), m, lf, sys, false))
	require.NoError(t, Resolve(context.Background(), m, lf, sys, true))
	assert.Equal(t, 2, calls)
}

func newEmptyLockfile() *lockfile.Lockfile {
	return &lockfile.Lockfile{Systems: make(map[string]lockfile.Packages)}
}
