package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thesavant42/grit-find/internal/api"
)

// DownloadFunc performs a download, reporting bytes through onProgress
type DownloadFunc func(ctx context.Context, onProgress api.ProgressFunc) (string, error)

const progressInterval = 100 * time.Millisecond

type progressMsg struct {
	written int64
	total   int64
}

type downloadDoneMsg struct{}

type downloadResult struct {
	path string
	err  error
}

// downloadModel shows a spinner, a progress bar and byte counts
type downloadModel struct {
	name     string
	spinner  spinner.Model
	progress progress.Model
	written  int64
	total    int64
	done     bool
	aborted  bool
	cancel   context.CancelFunc
}

func newDownloadModel(name string, total int64, cancel context.CancelFunc) downloadModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ProgressStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	return downloadModel{
		name:     name,
		spinner:  s,
		progress: prog,
		total:    total,
		cancel:   cancel,
	}
}

func (m downloadModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.written = msg.written
		if msg.total > 0 {
			m.total = msg.total
		}
		return m, nil

	case downloadDoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		// Allow ctrl+c to cancel
		if msg.String() == "ctrl+c" {
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m downloadModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.written) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

func (m downloadModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return fmt.Sprintf("%s %s %s %s/%s\n",
		m.spinner.View(),
		RenderNormal(m.name),
		m.progress.ViewAs(m.percent()),
		api.HumanReadableSize(m.written),
		api.HumanReadableSize(m.total))
}

// RunDownload runs download with a progress bar on a terminal and plain
// percentage lines otherwise.
func RunDownload(ctx context.Context, name string, total int64, download DownloadFunc) (string, error) {
	if !IsTerminal(os.Stdout) {
		return download(ctx, PlainProgress(os.Stdout))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newDownloadModel(name, total, cancel))
	results := make(chan downloadResult, 1)

	go func() {
		var last time.Time
		path, err := download(ctx, func(written, total int64) {
			if now := time.Now(); now.Sub(last) >= progressInterval || written == total {
				last = now
				p.Send(progressMsg{written: written, total: total})
			}
		})
		results <- downloadResult{path: path, err: err}
		p.Send(downloadDoneMsg{})
	}()

	_, runErr := p.Run()
	if runErr != nil {
		cancel()
	}

	// ctrl+c cancels ctx; waiting here lets the partial file be removed
	res := <-results
	if res.err != nil && runErr != nil {
		return "", fmt.Errorf("progress display failed: %w", runErr)
	}
	return res.path, res.err
}

// PlainProgress returns a progress callback printing every 10 percent
func PlainProgress(w io.Writer) api.ProgressFunc {
	last := -1
	return func(written, total int64) {
		if total <= 0 {
			return
		}
		pct := int(written*100/total) / 10 * 10
		if pct > 100 {
			pct = 100
		}
		if pct <= last {
			return
		}
		last = pct
		fmt.Fprintf(w, "%3d%% (%s / %s)\n", pct, api.HumanReadableSize(written), api.HumanReadableSize(total))
	}
}
