package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/thesavant42/grit-find/internal/models"
)

// ReleaseProber looks up the latest release of a repository
type ReleaseProber interface {
	LatestRelease(ctx context.Context, fullName string) (*models.Release, error)
}

// LatestRelease fetches the latest release for owner/name. A repository
// without releases yields an error wrapping ErrNotFound. Nothing is retried.
func (c *Client) LatestRelease(ctx context.Context, fullName string) (*models.Release, error) {
	owner, repo, err := ParseRepoString(fullName)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s/releases/latest", owner, repo), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release for %s: %w", fullName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		discard(resp)
		return nil, fmt.Errorf("latest release for %s: %w", fullName, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch latest release for %s: %w", fullName, newHTTPError(resp))
	}

	var release models.Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, &ParseError{What: "release for " + fullName, Err: err}
	}
	return &release, nil
}

// FilterWithReleases keeps the repositories whose latest release can be
// fetched, in their original order.
//
// This is one probe request per repository on top of the search request.
// The volume buys relevance: only repositories with something to download
// are offered. Probes run with at most concurrency in flight. Any probe
// failure only marks that repository ineligible; cancellation of ctx
// aborts the whole filter.
func FilterWithReleases(ctx context.Context, prober ReleaseProber, repos []models.Repository, concurrency int) ([]models.Repository, error) {
	if len(repos) == 0 {
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	keep := make([]bool, len(repos))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i, repo := range repos {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			_, err := prober.LatestRelease(egCtx, repo.FullName)
			if err == nil {
				keep[i] = true
				return nil
			}
			if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	kept := make([]models.Repository, 0, len(repos))
	for i, repo := range repos {
		if keep[i] {
			kept = append(kept, repo)
		}
	}
	return kept, nil
}
