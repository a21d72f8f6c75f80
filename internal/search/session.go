package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thesavant42/grit-find/internal/models"
)

// OutcomeKind classifies the result of one user command
type OutcomeKind int

const (
	Selected OutcomeKind = iota
	Moved
	NoMorePages
	AlreadyFirst
	Invalid
	Cancelled
)

// Outcome is what a command did to the session
type Outcome struct {
	Kind       OutcomeKind
	Repository models.Repository // set when Kind is Selected
	Message    string
}

// Session is the paging and selection state for one result set.
// Commands: a 1-based number selects from the current window,
// n/p move between windows, c cancels.
type Session struct {
	window *Window
	page   int
}

// NewSession starts at startPage, clamped to the valid range
func NewSession(w *Window, startPage int) *Session {
	return &Session{window: w, page: w.Clamp(startPage)}
}

// Page returns the current 1-based display page
func (s *Session) Page() int {
	return s.page
}

// Pages returns the number of display pages
func (s *Session) Pages() int {
	return s.window.Pages()
}

// Offset returns the index of the first item shown
func (s *Session) Offset() int {
	return s.window.Offset(s.page)
}

// Current returns the repositories shown on the current page
func (s *Session) Current() []models.Repository {
	return s.window.Page(s.page)
}

// Handle applies one command. Numbers index the current window only.
func (s *Session) Handle(input string) Outcome {
	choice := strings.TrimSpace(input)

	switch {
	case strings.EqualFold(choice, "n"):
		if s.page >= s.window.Pages() {
			return Outcome{Kind: NoMorePages, Message: "No more results."}
		}
		s.page++
		return Outcome{Kind: Moved}
	case strings.EqualFold(choice, "p"):
		if s.page <= 1 {
			return Outcome{Kind: AlreadyFirst, Message: "Already at the first page."}
		}
		s.page--
		return Outcome{Kind: Moved}
	case strings.EqualFold(choice, "c"):
		return Outcome{Kind: Cancelled}
	}

	current := s.Current()
	if num, err := strconv.Atoi(choice); err == nil && num >= 1 && num <= len(current) {
		return Outcome{Kind: Selected, Repository: current[num-1]}
	}

	return Outcome{
		Kind:    Invalid,
		Message: fmt.Sprintf("Invalid choice. Please enter a number between 1-%d, n, p, or c.", len(current)),
	}
}
