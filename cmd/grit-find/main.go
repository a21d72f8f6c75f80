package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/thesavant42/grit-find/internal/api"
	"github.com/thesavant42/grit-find/internal/cache"
	"github.com/thesavant42/grit-find/internal/config"
	"github.com/thesavant42/grit-find/internal/db"
	"github.com/thesavant42/grit-find/internal/models"
	"github.com/thesavant42/grit-find/internal/search"
	"github.com/thesavant42/grit-find/internal/ui"
)

var version = "dev"

// errCancelled is returned when the user backs out; the process exits 0
var errCancelled = errors.New("cancelled")

// CLI is the command line of grit-find.
type CLI struct {
	Version    kong.VersionFlag `help:"Show version." short:"V"`
	Query      []string         `arg:"" optional:"" help:"Search terms (prompted for when omitted)."`
	AI         bool             `name:"ai" help:"Use OpenAI to craft the search query from a short description."`
	Output     string           `short:"o" type:"path" default:"." placeholder:"DIR" help:"Destination directory for the downloaded asset."`
	Page       int              `default:"1" help:"1-based results page to start from."`
	Refresh    bool             `help:"Discard cached results for this query before searching."`
	ClearCache bool             `help:"Delete all cached results and exit."`
	NoCache    bool             `help:"Neither read nor write the result cache."`
	Config     string           `type:"path" placeholder:"FILE" help:"Extra config file, applied after the default locations."`
	Verbose    bool             `short:"v" help:"Debug logging and a rate-limit summary at exit."`
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("grit-find"),
		kong.Description("Search GitHub for repositories with releases and download an asset."),
		kong.Vars{"version": version},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Run(ctx)
	stop()

	if err != nil && !isCancel(err) {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// isCancel reports whether err only records the user backing out
func isCancel(err error) bool {
	return errors.Is(err, errCancelled) ||
		errors.Is(err, huh.ErrUserAborted) ||
		errors.Is(err, tea.ErrInterrupted) ||
		errors.Is(err, context.Canceled)
}

func loadConfig(extra string) (*config.Config, error) {
	paths := config.DefaultPaths()
	if extra != "" {
		paths = append(paths, extra)
	}
	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to api.log in dir. Logging is best effort; a directory
// that cannot be written to silences it.
func newLogger(dir string, verbose bool) (*log.Logger, func()) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger, f, err := api.NewFileLogger(dir, "grit-find", level)
	if err != nil {
		return log.New(io.Discard), func() {}
	}
	return logger, func() { f.Close() }
}

// openStore picks the cache backend. A backend that cannot be opened is
// replaced by an in-memory store so the search still runs.
func openStore(cfg *config.Config, dir string, logger *log.Logger) (cache.Store, func()) {
	if !cfg.Cache.Enabled {
		return cache.NewMemoryStore(nil), func() {}
	}
	switch cfg.Cache.Backend {
	case config.BackendSQLite:
		database, err := db.New(filepath.Join(dir, db.DefaultFileName))
		if err != nil {
			if logger != nil {
				logger.Warn("Falling back to in-memory cache", "error", err)
			}
			return cache.NewMemoryStore(nil), func() {}
		}
		return database, func() { database.Close() }
	default:
		return cache.NewFileStore(dir), func() {}
	}
}

func newClient(cfg *config.Config, logger *log.Logger) *api.Client {
	retrier := &api.Retrier{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		FallbackWait: cfg.Retry.FallbackWait,
		Sleep:        api.Sleep,
		OnWait: func(attempt int, wait time.Duration) {
			logger.Warn("Hit GitHub rate limit", "attempt", attempt, "wait", wait)
			ui.PrintWarning(fmt.Sprintf("Hit GitHub rate limit. Waiting %d seconds...", int(wait.Seconds())))
		},
	}
	return api.NewClient(
		api.WithBaseURL(cfg.GitHub.BaseURL),
		api.WithToken(os.Getenv("GITHUB_TOKEN")),
		api.WithUserAgent(cfg.GitHub.UserAgent),
		api.WithTimeout(cfg.GitHub.Timeout),
		api.WithLogger(logger),
		api.WithRetrier(retrier),
		api.WithProbeConcurrency(cfg.Search.ProbeConcurrency),
	)
}

// Run executes one search, selection and download.
func (c *CLI) Run(ctx context.Context) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.NoCache {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		if cacheDir, err = cache.DefaultDir(); err != nil {
			return err
		}
	}

	logger, closeLog := newLogger(cacheDir, c.Verbose)
	defer closeLog()

	store, closeStore := openStore(cfg, cacheDir, logger.WithPrefix("CACHE"))
	defer closeStore()
	results := cache.Open(ctx, store, logger.WithPrefix("CACHE"))

	if c.ClearCache {
		if err := results.Purge(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		ui.PrintSuccess("Cleared cached search results.")
		return nil
	}

	query, err := c.resolveQuery(ctx, cfg, logger.WithPrefix("ASSIST"))
	if err != nil {
		return err
	}

	if c.Refresh {
		// a failed save only means the stale pages come back next run
		_ = results.Clear(ctx, query)
	}

	client := newClient(cfg, logger.WithPrefix("API"))
	orch := search.New(client, results,
		search.WithRemotePageSize(cfg.Search.RemotePageSize),
		search.WithResultBudget(cfg.Search.ResultBudget),
		search.WithLogger(logger.WithPrefix("SEARCH")),
	)

	var repos []models.Repository
	err = ui.RunWithSpinner(ctx, fmt.Sprintf("Searching GitHub for %q...", query), func(ctx context.Context) error {
		var collectErr error
		repos, collectErr = orch.Collect(ctx, query)
		return collectErr
	})
	if errors.Is(err, search.ErrNoResults) {
		fmt.Printf("No repositories found for query: %s\n", query)
		return nil
	}
	if err != nil {
		return err
	}

	repo, err := selectRepository(os.Stdout, repos, cfg.Search.WindowSize, c.Page, ui.PromptChoice)
	if err != nil {
		return err
	}

	var release *models.Release
	err = ui.RunWithSpinner(ctx, fmt.Sprintf("Fetching latest release of %s...", repo.FullName), func(ctx context.Context) error {
		var releaseErr error
		release, releaseErr = client.LatestRelease(ctx, repo.FullName)
		return releaseErr
	})
	if err != nil {
		return err
	}

	if len(release.Assets) == 0 {
		fmt.Printf("Latest release '%s' has no downloadable assets.\n", release.TagName)
		return nil
	}

	asset, err := ui.SelectAsset(*release)
	if err != nil {
		return err
	}

	fmt.Printf("Downloading %s to %s\n", asset.Name, filepath.Join(c.Output, filepath.Base(asset.Name)))
	path, err := ui.RunDownload(ctx, asset.Name, asset.Size, func(ctx context.Context, onProgress api.ProgressFunc) (string, error) {
		return client.DownloadAsset(ctx, asset, c.Output, onProgress)
	})
	if err != nil {
		return err
	}
	ui.PrintSuccess("Done. Saved " + path)

	if c.Verbose {
		if rl, ok := client.RateLimit(); ok {
			ui.PrintRateLimit(rl.Remaining, rl.Reset)
		}
	}
	return nil
}

// resolveQuery returns the search text from the arguments, a prompt, or the
// query assist.
func (c *CLI) resolveQuery(ctx context.Context, cfg *config.Config, logger *log.Logger) (string, error) {
	words := strings.TrimSpace(strings.Join(c.Query, " "))

	if !c.AI {
		if words != "" {
			return words, nil
		}
		return ui.PromptQuery()
	}

	description := words
	if description == "" {
		var err error
		if description, err = ui.PromptDescription(); err != nil {
			return "", err
		}
	}

	suggester := api.NewSuggester(os.Getenv("OPENAI_API_KEY"), cfg.Assist.BaseURL, cfg.Assist.Model, cfg.Assist.Timeout, logger)
	var query string
	err := ui.RunWithSpinner(ctx, "Using OpenAI to propose a GitHub search query...", func(ctx context.Context) error {
		var suggestErr error
		query, suggestErr = suggester.Suggest(ctx, description)
		return suggestErr
	})
	if err != nil {
		return "", err
	}
	ui.PrintInfo("Search query: " + query)
	return query, nil
}

// selectRepository shows windows of repos until the user picks one.
// Cancelling returns errCancelled.
func selectRepository(out io.Writer, repos []models.Repository, windowSize, startPage int, prompt func() (string, error)) (models.Repository, error) {
	session := search.NewSession(search.NewWindow(repos, windowSize), startPage)

	show := true
	for {
		if show {
			fmt.Fprint(out, ui.RenderResults(session.Current(), session.Page(), session.Pages(), len(repos)))
		}

		input, err := prompt()
		if err != nil {
			return models.Repository{}, err
		}

		outcome := session.Handle(input)
		switch outcome.Kind {
		case search.Selected:
			return outcome.Repository, nil
		case search.Cancelled:
			return models.Repository{}, errCancelled
		case search.Moved:
			show = true
		default:
			fmt.Fprintln(out, outcome.Message)
			show = false
		}
	}
}
