// Package search drives the fetch, filter and cache loop behind a query and
// exposes the result as fixed-size display windows.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/thesavant42/grit-find/internal/api"
	"github.com/thesavant42/grit-find/internal/cache"
	"github.com/thesavant42/grit-find/internal/models"
)

const (
	// DefaultRemotePageSize is the per_page sent to GitHub
	DefaultRemotePageSize = api.MaxPerPage
	// DefaultResultBudget is how many repositories Collect gathers
	DefaultResultBudget   = 100
)

// ErrNoResults means the query produced no repositories with releases
var ErrNoResults = errors.New("no repositories found")

// PageFetcher fetches one filtered remote page. *api.Client implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, query string, perPage, page int) (api.SearchPage, error)
}

// PageResult is one remote page and where it came from
type PageResult struct {
	Items  []models.Repository
	Source cache.Lookup // Miss means it was fetched from GitHub
	Last   bool         // GitHub returned a short page; nothing follows
}

// Orchestrator collects search results for a query, going to the cache
// first and to GitHub only for pages that were never fetched.
type Orchestrator struct {
	fetcher PageFetcher
	cache   *cache.ResultCache
	perPage int
	budget  int
	logger  *log.Logger

	// one in-flight fetch per (query, page)
	flights singleflight.Group
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRemotePageSize sets the per-request page size (clamped to 1..100)
func WithRemotePageSize(n int) Option {
	return func(o *Orchestrator) { o.perPage = api.ClampPerPage(n) }
}

// WithResultBudget caps how many repositories Collect accumulates
func WithResultBudget(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.budget = n
		}
	}
}

// WithLogger enables orchestrator logging
func WithLogger(logger *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an Orchestrator reading through rc
func New(fetcher PageFetcher, rc *cache.ResultCache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		cache:   rc,
		perPage: DefaultRemotePageSize,
		budget:  DefaultResultBudget,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Page returns remote page n (1-based) for query. Cached pages and pages
// known to lie past the end are answered without a request.
func (o *Orchestrator) Page(ctx context.Context, query string, page int) (PageResult, error) {
	if page < 1 {
		page = 1
	}

	if repos, lookup := o.cache.Get(query, page); lookup != cache.Miss {
		if o.logger != nil {
			o.logger.Debug("Cache", "query", query, "page", page, "lookup", lookup, "items", len(repos))
		}
		return PageResult{Items: repos, Source: lookup, Last: lookup == cache.Exhausted}, nil
	}

	key := query + "\x00" + strconv.Itoa(page)
	v, err, _ := o.flights.Do(key, func() (any, error) {
		// a flight that finished just before this one may have filled it
		if repos, lookup := o.cache.Get(query, page); lookup != cache.Miss {
			return PageResult{Items: repos, Source: lookup, Last: lookup == cache.Exhausted}, nil
		}
		return o.fetch(ctx, query, page)
	})
	if err != nil {
		return PageResult{}, err
	}
	return v.(PageResult), nil
}

func (o *Orchestrator) fetch(ctx context.Context, query string, page int) (PageResult, error) {
	fetched, err := o.fetcher.FetchPage(ctx, query, o.perPage, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("page %d: %w", page, err)
	}

	// A short page before filtering is GitHub's end-of-results signal. A
	// short page after filtering only means repositories lacked releases.
	last := fetched.RawCount < o.perPage

	if err := o.cache.Put(ctx, query, page, fetched.Items, last); err != nil && o.logger != nil {
		o.logger.Warn("Continuing without persisted cache", "error", err)
	}

	items := fetched.Items
	if items == nil {
		items = []models.Repository{}
	}
	return PageResult{Items: items, Source: cache.Miss, Last: last}, nil
}

// Collect accumulates up to the result budget, requesting remote pages in
// order until the budget is met or a page reports the end of results.
// Pages thinned out by the release filter do not end the search; paging
// stops at GitHub's search depth. An empty result is ErrNoResults.
func (o *Orchestrator) Collect(ctx context.Context, query string) ([]models.Repository, error) {
	maxPages := max(api.MaxSearchResults/o.perPage, 1)

	var acc []models.Repository
	for page := 1; page <= maxPages && len(acc) < o.budget; page++ {
		res, err := o.Page(ctx, query, page)
		if err != nil {
			return nil, err
		}
		acc = append(acc, res.Items...)
		if res.Last {
			break
		}
	}

	if len(acc) > o.budget {
		acc = acc[:o.budget]
	}
	if o.logger != nil {
		o.logger.Info("Collected results", "query", query, "count", len(acc))
	}
	if len(acc) == 0 {
		return nil, fmt.Errorf("%w for query: %s", ErrNoResults, query)
	}
	return acc, nil
}
