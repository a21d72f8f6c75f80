package ui

import (
	"strings"
	"testing"

	"github.com/thesavant42/grit-find/internal/models"
)

func TestRenderResults(t *testing.T) {
	desc := "GitHub on the command line"
	repos := []models.Repository{
		{FullName: "cli/cli", Description: &desc, StargazersCount: 37000},
		{FullName: "junegunn/fzf", StargazersCount: 65000},
	}

	out := RenderResults(repos, 2, 3, 52)

	for _, want := range []string{
		"page 2 of 3",
		"52 repositories",
		"'n' for next page",
		"1. ",
		"cli/cli",
		"★37000",
		desc,
		"2. ",
		"junegunn/fzf",
		"no description",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderResults() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "3. ") {
		t.Errorf("RenderResults() numbered past the window:\n%s", out)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cli tool", "cli tool"},
		{"cli\x00tool", "clitool"},
		{"a\x1b[31mb", "a[31mb"},
		{"tab\there", "tab\there"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNotEmpty(t *testing.T) {
	validate := notEmpty("query")
	if err := validate("  \x00 "); err == nil {
		t.Error("notEmpty accepted blank input")
	}
	if err := validate("fzf"); err != nil {
		t.Errorf("notEmpty rejected %q: %v", "fzf", err)
	}
}
