package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/thesavant42/grit-find/internal/models"
)

// Lookup is the outcome of a cache read
type Lookup int

const (
	// Miss means the page has to be fetched
	Miss Lookup = iota
	// Hit means the page was served from the cache
	Hit
	// Exhausted means the query is fully fetched and the page lies past
	// the last cached one. The page is empty and must not be fetched.
	Exhausted
)

func (l Lookup) String() string {
	switch l {
	case Hit:
		return "hit"
	case Exhausted:
		return "exhausted"
	default:
		return "miss"
	}
}

// ResultCache serves search pages from a Store-backed Cache. It loads the
// store once and writes the whole cache back after every new page.
type ResultCache struct {
	mu     sync.Mutex
	store  Store
	data   *Cache
	logger *log.Logger
}

// Open loads the cache from store. A store that cannot be read is logged
// and replaced by an empty cache; Open itself never fails.
func Open(ctx context.Context, store Store, logger *log.Logger) *ResultCache {
	rc := &ResultCache{store: store, logger: logger}

	data, err := store.Load(ctx)
	if err != nil || data == nil {
		if logger != nil && err != nil {
			logger.Warn("Ignoring unreadable cache", "error", err)
		}
		data = New()
	}
	data.normalize()
	rc.data = data
	return rc
}

// Get returns the cached page for query. The slice is a copy.
func (r *ResultCache) Get(query string, page int) ([]models.Repository, Lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.data.Queries[query]
	if !ok {
		return nil, Miss
	}
	if repos, ok := entry.Pages[page]; ok {
		return cloneRepos(repos), Hit
	}
	if entry.FullyFetched && page > entry.LastPage() {
		return []models.Repository{}, Exhausted
	}
	return nil, Miss
}

// Put records a fetched page and persists the cache. Pages are append-only:
// a page already cached for (query, page) is kept as it is. isLastPage marks
// the query as fully fetched.
//
// The in-memory cache is updated even when saving fails; the returned
// *CacheError is informational.
func (r *ResultCache) Put(ctx context.Context, query string, page int, repos []models.Repository, isLastPage bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.data.Queries[query]
	if !ok {
		entry = newEntry()
		r.data.Queries[query] = entry
	}

	changed := false
	if _, exists := entry.Pages[page]; !exists {
		entry.Pages[page] = cloneRepos(repos)
		changed = true
	}
	if isLastPage && !entry.FullyFetched {
		entry.FullyFetched = true
		changed = true
	}
	if !changed {
		return nil
	}

	if r.logger != nil {
		r.logger.Debug("Caching page", "query", query, "page", page, "items", len(repos), "last", isLastPage)
	}
	return r.save(ctx)
}

// Clear forgets everything cached for query
func (r *ResultCache) Clear(ctx context.Context, query string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data.Queries[query]; !ok {
		return nil
	}
	delete(r.data.Queries, query)
	return r.save(ctx)
}

// Purge empties the cache
func (r *ResultCache) Purge(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = New()
	return r.save(ctx)
}

// Queries returns the number of cached queries
func (r *ResultCache) Queries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data.Queries)
}

func (r *ResultCache) save(ctx context.Context) error {
	err := r.store.Save(ctx, r.data)
	if err == nil {
		return nil
	}
	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) {
		cacheErr = &CacheError{Op: "save", Err: err}
	}
	if r.logger != nil {
		r.logger.Warn("Failed to save cache", "error", cacheErr)
	}
	return cacheErr
}
