package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/thesavant42/grit-find/internal/models"
)

const (
	// MaxPerPage is GitHub's hard cap on search page size
	MaxPerPage       = 100
	// MaxSearchResults is how deep GitHub lets a search be paged
	MaxSearchResults = 1000

	searchPath = "/search/repositories"
)

// SearchPage is one remote page after the release filter
type SearchPage struct {
	Items      []models.Repository
	RawCount   int // items returned by GitHub before filtering
	TotalCount int
}

// ClampPerPage restricts a page size to [1, MaxPerPage]
func ClampPerPage(perPage int) int {
	if perPage < 1 {
		return 1
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// SearchParams builds the query for a repository search. Sorting by stars,
// descending, decides which repository lands on which page, so it is fixed.
func SearchParams(query string, perPage, page int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("q", models.SearchTerms(query))
	params.Set("per_page", strconv.Itoa(ClampPerPage(perPage)))
	params.Set("page", strconv.Itoa(page))
	params.Set("sort", "stars")
	params.Set("order", "desc")
	return params
}

// SearchRepositories issues one search request, waiting out rate limits.
// A rate-limit status that survives the retry budget, or any other
// non-success status, is returned as an error.
func (c *Client) SearchRepositories(ctx context.Context, query string, perPage, page int) (*models.SearchResponse, error) {
	params := SearchParams(query, perPage, page)

	resp, err := c.retrier.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.Do(ctx, http.MethodGet, searchPath, params)
	})
	if err != nil {
		return nil, fmt.Errorf("GitHub search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpErr := newHTTPError(resp)
		if c.logger != nil {
			c.logger.Error("API error", "status", resp.StatusCode, "response", httpErr.Body)
		}
		if IsRateLimited(resp) {
			return nil, fmt.Errorf("GitHub search failed: %w: %w", ErrRateLimited, httpErr)
		}
		return nil, fmt.Errorf("GitHub search failed: %w", httpErr)
	}

	var search models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return nil, &ParseError{What: "search response", Err: err}
	}
	return &search, nil
}

// FetchPage searches one remote page and keeps only the repositories that
// have a latest release.
func (c *Client) FetchPage(ctx context.Context, query string, perPage, page int) (SearchPage, error) {
	search, err := c.SearchRepositories(ctx, query, perPage, page)
	if err != nil {
		return SearchPage{}, err
	}

	kept, err := FilterWithReleases(ctx, c, search.Items, c.probeConcurrency)
	if err != nil {
		return SearchPage{}, err
	}

	if c.logger != nil {
		c.logger.Info("Filtered search page", "query", query, "page", page,
			"fetched", len(search.Items), "with_releases", len(kept))
	}

	return SearchPage{
		Items:      kept,
		RawCount:   len(search.Items),
		TotalCount: search.TotalCount,
	}, nil
}
