package cli

import (
	"context"
	"os"

	"github.com/unnix/unnix/internal/closure"
	"github.com/unnix/unnix/internal/environment"
	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/progress"
	"github.com/unnix/unnix/internal/resolver"
	"github.com/unnix/unnix/internal/storepath"
)

// prepare resolves, fetches, and builds the environment for the host
// system: everything `env` and `print env` need before launching or
// printing. It shares the lock+fetch pipeline so both commands see
// identical output for identical manifests.
func prepare(ctx context.Context) (*runContext, []environment.Var, error) {
	rc, err := loadContext()
	if err != nil {
		return nil, nil, err
	}

	if err := resolver.Resolve(ctx, rc.Manifest, rc.Lockfile, rc.System, false); err != nil {
		return nil, nil, errs.NewExitError(errs.ExitFailure, err)
	}
	if err := rc.saveLockfile(); err != nil {
		return nil, nil, err
	}

	sm := rc.Manifest.ForSystem(rc.System)
	pkgs := rc.Lockfile.Systems[rc.System.String()]

	roots := make([]storepath.Path, 0, len(pkgs))
	for _, pl := range pkgs {
		for _, p := range pl.Outputs {
			roots = append(roots, p)
		}
	}

	sink := progress.New(os.Stderr, "fetching")
	sink.SetEnabled(!verboseFlag)
	fetcher := &closure.Fetcher{Store: rc.Store, Caches: sm.Caches, Sink: sink}
	if err := fetcher.Fetch(ctx, roots); err != nil {
		return nil, nil, errs.NewExitError(errs.ExitFailure, err)
	}
	sink.Done()

	vars, err := environment.Build(rc.Store, sm, lockfile.Packages(pkgs))
	if err != nil {
		return nil, nil, errs.NewExitError(errs.ExitFailure, err)
	}

	return rc, vars, nil
}
