// Package discovery implements the Discovery Walker (spec.md §4.3): it
// enumerates candidate files across configured roots, excluding rows
// already in the catalog, paths under an excluded prefix, and files with
// excluded extensions.
package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mediaguard/internal/probe"
)

// Candidate is one newly discovered file, with the metadata the scan
// operation's Adding phase needs without a second stat call.
type Candidate struct {
	Path         string
	Size         int64
	ModTime      time.Time
	CreationTime time.Time // best-effort; Go's stdlib has no portable birth time, so ModTime is used as the ordering proxy (see DESIGN.md)
	MimeType     string
}

// Exclusions bundles the path-prefix and extension exclusion lists
// consumed while walking.
type Exclusions struct {
	Paths      []string
	Extensions map[string]bool // lowercased, with leading dot
}

func (e Exclusions) excluded(path, ext string) bool {
	for _, p := range e.Paths {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return e.Extensions[ext]
}

// ProgressFunc is invoked periodically with (files_examined,
// files_selected) as the walk progresses (spec.md §4.3).
type ProgressFunc func(examined, selected int64)

// Options configures one Walk call.
type Options struct {
	Roots        []string
	Exclusions   Exclusions
	ExistingPath func(path string) bool // membership test against the catalog's existing file_path set
	MaxWorkers   int
	GlobalLimit  int64 // 0 = unlimited
	OnProgress   ProgressFunc
}

// Walk enumerates candidate files across opts.Roots per spec.md §4.3's
// algorithm: a worker per root up to min(len(roots), MaxWorkers) when
// there is more than one root, a single sequential walk otherwise.
// Results are merged and returned ordered by creation time ascending.
// ctx cancellation is honored cooperatively at every directory boundary.
func Walk(ctx context.Context, opts Options) ([]Candidate, error) {
	workers := opts.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	if len(opts.Roots) < workers {
		workers = len(opts.Roots)
	}
	if workers < 1 {
		workers = 1
	}

	var examined, selected int64
	var limitHit int64 // atomic bool: 1 once GlobalLimit reached

	progress := func() {
		if opts.OnProgress == nil {
			return
		}
		ex := atomic.LoadInt64(&examined)
		if ex%100 == 0 {
			opts.OnProgress(ex, atomic.LoadInt64(&selected))
		}
	}

	var mu sync.Mutex
	var results []Candidate

	rootCh := make(chan string, len(opts.Roots))
	for _, r := range opts.Roots {
		rootCh <- r
	}
	close(rootCh)

	var wg sync.WaitGroup
	var walkErr error
	var errOnce sync.Once

	walkOneRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				return nil // a single unreadable entry does not abort discovery
			}
			if d.IsDir() {
				return nil
			}
			if atomic.LoadInt64(&limitHit) == 1 {
				return filepath.SkipAll
			}

			atomic.AddInt64(&examined, 1)
			progress()

			ext := strings.ToLower(filepath.Ext(path))
			if probe.ClassifyExtension(ext) == probe.TypeUnsupported {
				return nil
			}
			if opts.Exclusions.excluded(path, ext) {
				return nil
			}
			if opts.ExistingPath != nil && opts.ExistingPath(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}

			mu.Lock()
			results = append(results, Candidate{
				Path:         path,
				Size:         info.Size(),
				ModTime:      info.ModTime(),
				CreationTime: info.ModTime(),
				MimeType:     probe.MimeLikeType(ext),
			})
			n := int64(len(results))
			mu.Unlock()

			atomic.AddInt64(&selected, 1)
			if opts.GlobalLimit > 0 && n >= opts.GlobalLimit {
				atomic.StoreInt64(&limitHit, 1)
				return filepath.SkipAll
			}
			return nil
		})
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for root := range rootCh {
				if err := walkOneRoot(root); err != nil {
					errOnce.Do(func() { walkErr = err })
				}
			}
		}()
	}
	wg.Wait()

	if opts.OnProgress != nil {
		opts.OnProgress(atomic.LoadInt64(&examined), atomic.LoadInt64(&selected))
	}

	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreationTime.Before(results[j].CreationTime)
	})
	return results, nil
}
