// Package closure implements unnix's core algorithm: a concurrent,
// deduplicating breadth-first fetch of a store path and everything it
// transitively references, across a priority-ordered list of binary
// caches, into the local store.
package closure

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/unnix/unnix/internal/errs"
	"github.com/unnix/unnix/internal/httpclient"
	"github.com/unnix/unnix/internal/logging"
	"github.com/unnix/unnix/internal/narinfo"
	"github.com/unnix/unnix/internal/progress"
	"github.com/unnix/unnix/internal/storepath"
	"github.com/unnix/unnix/internal/store"
)

// Fetcher drives the closure fetch over a fixed, priority-ordered
// list of cache base URLs (tried in order; a 404 from one falls
// through to the next).
type Fetcher struct {
	Store  *store.Store
	Caches []string
	Sink   *progress.Sink
}

// Fetch fetches roots and their full transitive closure into the
// Fetcher's store. It returns the first error encountered by any
// in-flight fetch task, cancelling all others (first-error-wins).
func (f *Fetcher) Fetch(ctx context.Context, roots []storepath.Path) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	downloaded := make(map[storepath.Path]struct{})
	var downloadedMu sync.Mutex

	queue := make(chan []storepath.Path, 1)
	var wg sync.WaitGroup

	enqueue := func(paths []storepath.Path) {
		downloadedMu.Lock()
		var fresh []storepath.Path
		for _, p := range paths {
			if _, seen := downloaded[p]; seen {
				continue
			}
			downloaded[p] = struct{}{}
			fresh = append(fresh, p)
		}
		downloadedMu.Unlock()
		if len(fresh) == 0 {
			return
		}
		if f.Sink != nil {
			f.Sink.IncLength(len(fresh))
		}
		wg.Add(len(fresh))
		select {
		case queue <- fresh:
		case <-ctx.Done():
			wg.Add(-len(fresh))
		}
	}

	enqueue(roots)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	fetched := 0
loop:
	for {
		select {
		case batch := <-queue:
			for _, p := range batch {
				p := p
				go func() {
					defer wg.Done()
					if err := f.fetchOne(ctx, p, enqueue); err != nil {
						cancel(err)
						return
					}
					if f.Sink != nil {
						f.Sink.IncCompleted(1)
					}
				}()
			}
		case <-done:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	// Release batches still queued after a cancellation so the wait
	// group can drain.
drain:
	for {
		select {
		case batch := <-queue:
			wg.Add(-len(batch))
		case <-done:
			break drain
		}
	}
	if err := context.Cause(ctx); err != nil {
		return err
	}
	fetched = len(downloaded)
	logging.ClosureFetched(fetched)
	return nil
}

// fetchOne resolves p's narinfo, queues its references, and unpacks
// its archive if not already present in the store. A path only
// short-circuits straight to queuing references when both its
// archive AND its references cache are already present: Store.Dir can
// hold paths/<p> without references/<p>.json (an earlier partial
// run, or a store populated by another tool), and References returns
// (nil, nil) for "file absent" rather than "zero references" in that
// case, so that distinction drives whether narinfo still needs
// resolving.
func (f *Fetcher) fetchOne(ctx context.Context, p storepath.Path, enqueue func([]storepath.Path)) error {
	if f.Store.Contains(p) {
		refs, err := f.Store.References(p)
		if err != nil {
			return err
		}
		if refs != nil {
			enqueue(refs)
			return nil
		}

		// Archive present, references cache missing: resolve narinfo
		// to recover the reference list without re-downloading the
		// archive itself.
		info, err := f.queryNarinfo(ctx, p)
		if err != nil {
			return err
		}
		enqueue(info.References)
		return f.Store.RecordReferences(p, info.References)
	}

	info, err := f.queryNarinfo(ctx, p)
	if err != nil {
		return err
	}

	enqueue(info.References)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return fmt.Errorf("closure: building archive request for %s: %w", p, err)
	}
	resp, err := httpclient.Do(req)
	if err != nil {
		return fmt.Errorf("closure: fetching archive for %s: %w", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &errs.ProtocolError{URL: info.URL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if err := f.Store.UnpackNar(p, info.Compression, resp.Body, info.References); err != nil {
		return err
	}
	logging.PathUnpacked(p.String())
	return nil
}

// queryNarinfo tries each configured cache in priority order,
// returning the first narinfo found. A 404 falls through to the next
// cache, as does any other non-2xx response or transport failure
// (e.g. a cache 5xx): only once every cache has been exhausted
// without success does the caller see a NotFoundError.
func (f *Fetcher) queryNarinfo(ctx context.Context, p storepath.Path) (narinfo.Info, error) {
	for _, cache := range f.Caches {
		url := fmt.Sprintf("%s/%s.narinfo", cache, p.Hash())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return narinfo.Info{}, fmt.Errorf("closure: building narinfo request: %w", err)
		}

		resp, err := httpclient.Do(req)
		if err != nil {
			logging.CacheFailed(cache, p.String(), err)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			logging.CacheQueried(cache, p.String(), false)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			logging.CacheFailed(cache, p.String(), fmt.Errorf("unexpected status %s", resp.Status))
			continue
		}

		logging.CacheQueried(cache, p.String(), true)
		info, err := narinfo.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			return narinfo.Info{}, fmt.Errorf("closure: parsing narinfo from %s: %w", cache, err)
		}
		return info, nil
	}

	return narinfo.Info{}, &errs.NotFoundError{What: p.String()}
}
