// Package store implements unnix's local, user-scoped content store:
// a cache-directory tree of unpacked store paths plus a references
// cache, guarded by per-path advisory file locks so multiple unnix
// processes can populate the same store concurrently without
// corrupting a partially-unpacked entry.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/unnix/unnix/internal/archive"
	"github.com/unnix/unnix/internal/storepath"
)

// lockPollInterval is how often a contended lock is retried.
const lockPollInterval = 250 * time.Millisecond

// Store is a local store rooted at Dir, typically
// "$XDG_CACHE_HOME/unnix/store".
type Store struct {
	Dir string
}

// New returns a Store rooted under the user's cache directory,
// mirroring the original implementation's dirs::cache_dir() boundary.
func New() (*Store, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("store: resolving cache directory: %w", err)
	}
	return &Store{Dir: filepath.Join(cacheDir, "unnix", "store")}, nil
}

func (s *Store) pathDir(p storepath.Path) string {
	return filepath.Join(s.Dir, "paths", p.Base())
}

func (s *Store) lockPath(p storepath.Path) string {
	return filepath.Join(s.Dir, "lock", p.Base())
}

func (s *Store) referencesPath(p storepath.Path) string {
	return filepath.Join(s.Dir, "references", p.Base()+".json")
}

// Contains reports whether p has already been fully unpacked into
// the store.
func (s *Store) Contains(p storepath.Path) bool {
	_, err := os.Stat(s.pathDir(p))
	return err == nil
}

// PathsDir returns the directory holding every unpacked store path,
// named by basename exactly as they would appear under the canonical
// /nix/store — the directory a sandbox overlays or binds over
// /nix/store wholesale.
func (s *Store) PathsDir() string {
	return filepath.Join(s.Dir, "paths")
}

// PathFor returns the absolute filesystem path a fully unpacked p
// lives at.
func (s *Store) PathFor(p storepath.Path) string {
	return s.pathDir(p)
}

// UnpackNar decompresses and materializes an archive for p under the
// store, recording its references for later lookup. It is idempotent:
// if p is already present, it returns immediately without touching
// the lock or re-reading r. Since r is the caller's open network
// stream, callers should avoid opening it when Contains already
// reports true.
func (s *Store) UnpackNar(p storepath.Path, c archive.Compression, body interface {
	Read([]byte) (int, error)
}, references []storepath.Path) error {
	if s.Contains(p) {
		return nil
	}

	unlock, err := s.lock(p)
	if err != nil {
		return err
	}
	defer unlock()

	// Re-check after acquiring the lock: another process may have
	// finished unpacking p while we were waiting.
	if s.Contains(p) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.pathDir(p)), 0755); err != nil {
		return fmt.Errorf("store: preparing paths dir: %w", err)
	}
	if err := archive.Unpack(c, body, s.pathDir(p)); err != nil {
		return fmt.Errorf("store: unpacking %s: %w", p, err)
	}
	if err := s.putReferences(p, references); err != nil {
		return err
	}
	return nil
}

// RecordReferences persists references for a path whose archive is
// already unpacked but whose references cache is missing (e.g. from
// an earlier partial run). It does not touch the path's archive.
func (s *Store) RecordReferences(p storepath.Path, references []storepath.Path) error {
	return s.putReferences(p, references)
}

// lock acquires the per-path advisory lock, polling at
// lockPollInterval until it succeeds, and returns a function that
// releases it.
func (s *Store) lock(p storepath.Path) (func(), error) {
	lockFile := s.lockPath(p)
	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("store: preparing lock dir: %w", err)
	}

	fl := flock.New(lockFile)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("store: locking %s: %w", p, err)
		}
		if locked {
			break
		}
		time.Sleep(lockPollInterval)
	}
	return func() { _ = fl.Unlock() }, nil
}

// References returns the store paths p directly refers to, as
// recorded by UnpackNar. Returns an empty slice if p has no recorded
// references (e.g. a leaf path).
func (s *Store) References(p storepath.Path) ([]storepath.Path, error) {
	data, err := os.ReadFile(s.referencesPath(p))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading references for %s: %w", p, err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: parsing references for %s: %w", p, err)
	}

	refs := make([]storepath.Path, 0, len(raw))
	for _, r := range raw {
		sp, err := storepath.FromBare(r)
		if err != nil {
			return nil, fmt.Errorf("store: invalid recorded reference %q: %w", r, err)
		}
		refs = append(refs, sp)
	}
	return refs, nil
}

// putReferences persists p's reference list. Lock contention here is
// not an error condition worth bubbling: the references file is
// small and advisory, so on contention putReferences silently no-ops,
// matching the spec's one deliberate silent-swallow case.
func (s *Store) putReferences(p storepath.Path, refs []storepath.Path) error {
	if err := os.MkdirAll(filepath.Dir(s.referencesPath(p)), 0755); err != nil {
		return fmt.Errorf("store: preparing references dir: %w", err)
	}

	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Base()
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("store: encoding references for %s: %w", p, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.lockPath(p)), 0755); err != nil {
		return fmt.Errorf("store: preparing lock dir: %w", err)
	}
	fl := flock.New(s.lockPath(p) + ".refs")
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("store: locking references for %s: %w", p, err)
	}
	if !locked {
		return nil
	}
	defer func() { _ = fl.Unlock() }()

	tmp := s.referencesPath(p) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: writing references for %s: %w", p, err)
	}
	return os.Rename(tmp, s.referencesPath(p))
}

// PropagatedClosure computes the transitive closure of p's
// references using an iterative fixpoint walk over the store's
// recorded references cache (no recursion, matching the teacher's
// iterative BFS-by-map convention).
func (s *Store) PropagatedClosure(roots []storepath.Path) ([]storepath.Path, error) {
	seen := make(map[storepath.Path]struct{})
	queue := append([]storepath.Path(nil), roots...)

	var closure []storepath.Path
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		closure = append(closure, p)

		refs, err := s.References(p)
		if err != nil {
			return nil, err
		}
		queue = append(queue, refs...)
	}
	return closure, nil
}
