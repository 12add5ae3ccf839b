package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/httpclient"
)

// withTestServer points the process-wide HTTP client at srv for the
// duration of fn, restoring the prior client afterward. GetOutputs
// always dials https://, so the test server must be TLS.
func withTestServer(t *testing.T, handler http.HandlerFunc, fn func(domain string)) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	defer srv.Close()

	orig := *httpclient.Underlying()
	*httpclient.Underlying() = *srv.Client()
	defer func() { *httpclient.Underlying() = orig }()

	fn(strings.TrimPrefix(srv.URL, "https://"))
}

func TestGetOutputsParsesResponse(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/nixpkgs/unstable/hello.x86_64-linux/latest-for/x86_64-linux", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"buildoutputs":{"out":{"path":"/nix/store/zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello-2.12"}}}`))
	}, func(domain string) {
		h := Hydra{Domain: domain, Project: "nixpkgs", Jobset: "unstable"}
		outputs, err := h.GetOutputs(context.Background(), "hello", "x86_64-linux")
		require.NoError(t, err)
		require.Contains(t, outputs, "out")
		assert.Equal(t, "hello-2.12", outputs["out"].Name())
	})
}

func TestGetOutputsNotFound(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, func(domain string) {
		h := Hydra{Domain: domain, Project: "nixpkgs", Jobset: "unstable"}
		_, err := h.GetOutputs(context.Background(), "hello", "x86_64-linux")
		var nf *errs.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})
}

func TestGetOutputsUsesCustomJobTemplate(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/job/nixpkgs/unstable/x86_64-linux.hello/latest-for/x86_64-linux", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"buildoutputs":{"out":{"path":"/nix/store/zy5wrackjyvhvxbhcxpmd5vvxz2f5dac-hello-2.12"}}}`))
	}, func(domain string) {
		h := Hydra{Domain: domain, Project: "nixpkgs", Jobset: "unstable", JobTemplate: "{system}.{attribute}"}
		outputs, err := h.GetOutputs(context.Background(), "hello", "x86_64-linux")
		require.NoError(t, err)
		require.Contains(t, outputs, "out")
	})
}

func TestGetOutputsRejectsUnknownPlaceholder(t *testing.T) {
	h := Hydra{Domain: "hydra.example.org", Project: "nixpkgs", Jobset: "unstable", JobTemplate: "{bogus}"}
	_, err := h.GetOutputs(context.Background(), "hello", "x86_64-linux")
	var cfgErr *errs.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestGetOutputsProtocolErrorOnBadStatus(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, func(domain string) {
		h := Hydra{Domain: domain, Project: "nixpkgs", Jobset: "unstable"}
		_, err := h.GetOutputs(context.Background(), "hello", "x86_64-linux")
		var pe *errs.ProtocolError
		assert.ErrorAs(t, err, &pe)
	})
}
