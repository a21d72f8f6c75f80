package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPlainProgress(t *testing.T) {
	var buf bytes.Buffer
	report := PlainProgress(&buf)

	const total = 1000
	for written := int64(0); written <= total; written += 50 {
		report(written, total)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 11 {
		t.Fatalf("got %d lines, want 11:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "  0%") || !strings.HasPrefix(lines[10], "100%") {
		t.Errorf("unexpected first/last lines %q / %q", lines[0], lines[10])
	}
}

func TestPlainProgress_UnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	PlainProgress(&buf)(512, 0)
	if buf.Len() != 0 {
		t.Errorf("expected no output without a total, got %q", buf.String())
	}
}

func TestDownloadModel(t *testing.T) {
	cancelled := false
	m := newDownloadModel("tool.tar.gz", 2048, func() { cancelled = true })

	next, _ := m.Update(progressMsg{written: 1024, total: 2048})
	m = next.(downloadModel)
	if m.percent() != 0.5 {
		t.Errorf("percent() = %v, want 0.5", m.percent())
	}
	if !strings.Contains(m.View(), "tool.tar.gz") {
		t.Errorf("View() missing asset name: %q", m.View())
	}

	next, cmd := m.Update(downloadDoneMsg{})
	m = next.(downloadModel)
	if !m.done || cmd == nil {
		t.Error("downloadDoneMsg should finish the program")
	}
	if m.View() != "" {
		t.Errorf("View() after completion = %q", m.View())
	}
	if cancelled {
		t.Error("completion must not cancel the download")
	}
}

func TestDownloadModel_CtrlC(t *testing.T) {
	cancelled := false
	m := newDownloadModel("tool.zip", 10, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(downloadModel)
	if !cancelled || !m.aborted || cmd == nil {
		t.Errorf("ctrl+c: cancelled=%v aborted=%v", cancelled, m.aborted)
	}
}

func TestDownloadModel_PercentClamped(t *testing.T) {
	m := newDownloadModel("x", 0, nil)
	if m.percent() != 0 {
		t.Errorf("percent() with unknown size = %v", m.percent())
	}
	m.total, m.written = 10, 20
	if m.percent() != 1 {
		t.Errorf("percent() past total = %v", m.percent())
	}
}
