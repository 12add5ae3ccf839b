// Package sandbox launches an isolated shell or command with the
// entire local store overlaid (or bound, if the host has no
// /nix/store of its own) onto /nix/store, via bubblewrap (bwrap), so
// every pinned output and its transitive dependencies are visible
// regardless of which outputs the caller explicitly requested.
// Launching always replaces the current process (true exec, not
// fork-exec): unnix never resumes after a successful launch.
package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/unnix/unnix/internal/environment"
	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/store"
)

// Config describes a sandbox invocation: the local store to overlay
// onto /nix/store, the environment to set, and the command to exec
// once inside (empty means run $SHELL).
type Config struct {
	Store   *store.Store
	Env     []environment.Var
	Command []string
}

// canonicalStoreDir is the store prefix a sandbox overlays or binds
// the local store onto. Variable rather than const so tests can point
// it at a temp path instead of probing the real /nix/store.
var canonicalStoreDir = "/nix/store"

// Argv builds the bwrap argument vector for cfg, without the "bwrap"
// program name itself: the host filesystem bound in full, then the
// local store overlaid (or bound, if /nix/store doesn't already exist
// on the host) onto the canonical /nix/store prefix, and the command
// to run.
func Argv(cfg Config) []string {
	args := []string{
		"--bind", "/", "/",
		"--dev-bind", "/dev", "/dev",
	}

	if _, err := os.Stat(canonicalStoreDir); err == nil {
		args = append(args,
			"--overlay-src", canonicalStoreDir,
			"--overlay-src", cfg.Store.PathsDir(),
			"--ro-overlay", canonicalStoreDir,
		)
	} else {
		args = append(args, "--ro-bind", cfg.Store.PathsDir(), canonicalStoreDir)
	}

	args = append(args, "--")
	args = append(args, cfg.Command...)
	return args
}

// CommandFor resolves the argv to exec inside the sandbox: cfg.Command
// if set, else the user's $SHELL, else "sh".
func CommandFor(cfg Config) []string {
	if len(cfg.Command) > 0 {
		return cfg.Command
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return []string{sh}
	}
	return []string{"sh"}
}

// Launch execs bwrap with cfg's environment, replacing the current
// process. On success this function never returns.
func Launch(cfg Config) error {
	bwrapPath, err := exec.LookPath("bwrap")
	if err != nil {
		return &errs.ConfigError{Message: "bwrap not found on PATH", Err: err}
	}

	cfg.Command = CommandFor(cfg)
	argv := append([]string{bwrapPath}, Argv(cfg)...)

	env := os.Environ()
	for _, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", v.Name, v.Value))
	}

	if err := syscall.Exec(bwrapPath, argv, env); err != nil {
		return fmt.Errorf("sandbox: exec bwrap: %w", err)
	}
	return nil // unreachable on success; syscall.Exec never returns without an error
}
