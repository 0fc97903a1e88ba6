package files

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

const (
	defaultSearchResults = 50
	maxSearchResults     = 100
)

// errStop aborts a walk once the result cap is reached.
var errStop = errors.New("stop walk")

// Search finds entries whose name contains query, case-insensitive,
// anywhere under relPath. An optional doublestar pattern further
// filters by sandbox-relative path. Unreadable subtrees are skipped.
func (s *Service) Search(ctx context.Context, tenantID, relPath, query, pattern string, maxResults int) (results []FileEntry, err error) {
	start := time.Now()
	defer func() { s.record("search", start, err) }()

	if strings.TrimSpace(query) == "" {
		return nil, validation("search", relPath, "query is required")
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}
	if pattern != "" {
		if _, perr := doublestar.Match(pattern, ""); perr != nil {
			return nil, validation("search", relPath, "invalid glob pattern %q", pattern)
		}
	}

	rootAbs, err := s.sandbox.Resolve(tenantID, relPath)
	if err != nil {
		return nil, err
	}
	canonRoot, err := s.sandbox.CanonicalRoot(tenantID)
	if err != nil {
		return nil, err
	}
	if info, serr := os.Stat(rootAbs); serr != nil {
		if os.IsNotExist(serr) {
			return nil, notFound("search", relPath)
		}
		return nil, internal("search", relPath, serr)
	} else if !info.IsDir() {
		return nil, validation("search", relPath, "path is not a directory")
	}

	needle := strings.ToLower(query)
	conf := fastwalk.Config{Follow: false}

	// fastwalk runs the callback from multiple goroutines.
	var mu sync.Mutex
	results = make([]FileEntry, 0, maxResults)

	walkErr := fastwalk.Walk(&conf, rootAbs, func(p string, d fs.DirEntry, werr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if werr != nil {
			// The stop sentinel and cancellation errors come back
			// through the callback once more; they must terminate the
			// walk, not be translated into a skip.
			if errors.Is(werr, errStop) || errors.Is(werr, context.Canceled) || errors.Is(werr, context.DeadlineExceeded) {
				return werr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == rootAbs {
			return nil
		}
		name := d.Name()
		if !strings.Contains(strings.ToLower(name), needle) {
			return nil
		}
		if pattern != "" {
			rel := s.sandbox.Rel(canonRoot, p)
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		entry := describeEntry(p, info, canonRoot)

		mu.Lock()
		defer mu.Unlock()
		if len(results) >= maxResults {
			return errStop
		}
		results = append(results, entry)
		if len(results) >= maxResults {
			return errStop
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, errStop) {
		if ctx.Err() != nil {
			return nil, internal("search", relPath, ctx.Err())
		}
		return nil, internal("search", relPath, walkErr)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// walkSize sums regular file sizes under a directory, concurrently.
func walkSize(ctx context.Context, rootAbs string) (int64, int, error) {
	var (
		mu    sync.Mutex
		size  int64
		count int
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, rootAbs, func(p string, d fs.DirEntry, werr error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if werr != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil || !info.Mode().IsRegular() {
			return nil
		}
		mu.Lock()
		size += info.Size()
		count++
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return size, count, nil
}
