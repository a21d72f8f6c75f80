// Package cache keeps already-fetched search pages across runs so repeated
// queries do not hit the GitHub API again.
package cache

import (
	"context"
	"fmt"

	"github.com/thesavant42/grit-find/internal/models"
)

// Cache maps an exact query string to everything fetched for it.
// Keys are case and whitespace sensitive.
type Cache struct {
	Queries map[string]*QueryEntry `json:"queries"`
}

// QueryEntry holds the pages fetched for one query, keyed by 1-based page
// number. Once FullyFetched is set, pages past the last cached one are
// known to be empty.
type QueryEntry struct {
	Pages        map[int][]models.Repository `json:"pages"`
	FullyFetched bool                        `json:"fully_fetched"`
}

// New returns an empty cache
func New() *Cache {
	return &Cache{Queries: make(map[string]*QueryEntry)}
}

func newEntry() *QueryEntry {
	return &QueryEntry{Pages: make(map[int][]models.Repository)}
}

// LastPage returns the highest cached page number, or 0
func (e *QueryEntry) LastPage() int {
	last := 0
	for page := range e.Pages {
		if page > last {
			last = page
		}
	}
	return last
}

// normalize fills nil maps left by decoding partial or hand-edited files
func (c *Cache) normalize() {
	if c.Queries == nil {
		c.Queries = make(map[string]*QueryEntry)
	}
	for q, e := range c.Queries {
		if e == nil {
			delete(c.Queries, q)
			continue
		}
		if e.Pages == nil {
			e.Pages = make(map[int][]models.Repository)
		}
	}
}

// Clone returns a deep copy
func (c *Cache) Clone() *Cache {
	out := New()
	for q, e := range c.Queries {
		if e == nil {
			continue
		}
		ne := &QueryEntry{
			Pages:        make(map[int][]models.Repository, len(e.Pages)),
			FullyFetched: e.FullyFetched,
		}
		for page, repos := range e.Pages {
			ne.Pages[page] = cloneRepos(repos)
		}
		out.Queries[q] = ne
	}
	return out
}

func cloneRepos(repos []models.Repository) []models.Repository {
	out := make([]models.Repository, len(repos))
	for i, r := range repos {
		out[i] = r
		if r.Description != nil {
			d := *r.Description
			out[i].Description = &d
		}
	}
	return out
}

// Store persists a whole Cache. Load and Save are the only operations.
type Store interface {
	Load(ctx context.Context) (*Cache, error)
	Save(ctx context.Context, c *Cache) error
}

// CacheError is a cache that could not be read or written. It never
// aborts a search; the run carries on without the cached data.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
