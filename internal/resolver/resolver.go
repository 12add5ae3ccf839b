// Package resolver implements the lock workflow: for every package a
// manifest declares on a system, reuse its pinned lockfile entry if
// the resolution inputs are unchanged, otherwise resolve it fresh
// against its source concurrently with every other package needing a
// refresh.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/unnix/unnix/internal/lockfile"
	"github.com/unnix/unnix/internal/logging"
	"github.com/unnix/unnix/internal/manifest"
	"github.com/unnix/unnix/internal/storepath"
	"github.com/unnix/unnix/internal/system"
)

// hashInput is the canonical, JSON-hashable shape of a package's
// resolution inputs, used to decide lockfile reuse.
type hashInput struct {
	Attribute string
	Outputs   []string
	Source    string
}

// Resolve updates lf in place for sys: reused entries are left
// untouched, changed or missing entries are resolved concurrently via
// m's declared source for each package. unconditional forces every
// package to re-resolve regardless of its hash, matching the
// `update` command's semantics.
func Resolve(ctx context.Context, m *manifest.Manifest, lf *lockfile.Lockfile, sys system.System, unconditional bool) error {
	sm := m.ForSystem(sys)
	sysName := sys.String()

	group, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for attr, pkg := range sm.Packages {
		attr, pkg := attr, pkg

		input := hashInput{Attribute: pkg.Attribute, Outputs: pkg.Outputs, Source: pkg.Source}
		newHash, err := lockfile.HashInputs(input)
		if err != nil {
			return err
		}

		if !unconditional {
			mu.Lock()
			reused, ok := lf.Add(sysName, attr, newHash)
			mu.Unlock()
			if ok {
				logging.LockReused(sysName, attr)
				mu.Lock()
				lf.Set(sysName, attr, reused)
				mu.Unlock()
				continue
			}
		}

		logging.LockRefetched(sysName, attr)
		group.Go(func() error {
			src, err := m.Source(pkg.Source)
			if err != nil {
				return fmt.Errorf("resolver: %s: %w", attr, err)
			}
			resolved, err := src.GetOutputs(gctx, pkg.Attribute, sysName)
			if err != nil {
				return fmt.Errorf("resolver: %s: %w", attr, err)
			}

			var outputs map[string]storepath.Path
			if len(pkg.Outputs) == 0 {
				// No outputs declared: pin every output the source reports.
				outputs = resolved
			} else {
				outputs = make(map[string]storepath.Path, len(pkg.Outputs))
				for _, name := range pkg.Outputs {
					p, ok := resolved[name]
					if !ok {
						return fmt.Errorf("resolver: %s: source has no %q output", attr, name)
					}
					outputs[name] = p
				}
			}

			mu.Lock()
			lf.Set(sysName, attr, lockfile.PackageLock{InputHash: newHash, Outputs: outputs})
			mu.Unlock()
			return nil
		})
	}

	return group.Wait()
}
