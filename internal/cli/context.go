package cli

import (
	"fmt"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/store"
	"github.com/unnix/unnix/internal/system"
)

// runContext bundles the manifest, lockfile, store, and host system
// every command beyond init needs.
type runContext struct {
	Dir      string
	Manifest *manifest.Manifest
	Lockfile *lockfile.Lockfile
	Store    *store.Store
	System   system.System
}

func loadContext() (*runContext, error) {
	m, err := manifest.Load(directoryFlag)
	if err != nil {
		return nil, errs.NewExitError(errs.ExitConfigError, err)
	}

	lf, err := lockfile.FromDir(directoryFlag)
	if err != nil {
		return nil, errs.NewExitError(errs.ExitConfigError, err)
	}

	sys, err := system.Host()
	if err != nil {
		return nil, errs.NewExitError(errs.ExitFailure, err)
	}

	s, err := store.New()
	if err != nil {
		return nil, errs.NewExitError(errs.ExitFailure, err)
	}

	return &runContext{Dir: directoryFlag, Manifest: m, Lockfile: lf, Store: s, System: sys}, nil
}

func (rc *runContext) saveLockfile() error {
	if err := rc.Lockfile.WriteDir(rc.Dir); err != nil {
		return errs.NewExitError(errs.ExitFailure, fmt.Errorf("writing lockfile: %w", err))
	}
	return nil
}
