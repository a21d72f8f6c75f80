package search

import "github.com/thesavant42/grit-find/internal/models"

// DefaultWindowSize is how many repositories are shown at once
const DefaultWindowSize = 25

// Window slices accumulated results into 1-based display pages. It never
// triggers network activity.
type Window struct {
	items []models.Repository
	size  int
}

// NewWindow creates a window of size over items
func NewWindow(items []models.Repository, size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{items: items, size: size}
}

// Size returns the window size
func (w *Window) Size() int {
	return w.size
}

// Len returns the number of accumulated results
func (w *Window) Len() int {
	return len(w.items)
}

// Pages returns the number of display pages
func (w *Window) Pages() int {
	return (len(w.items) + w.size - 1) / w.size
}

// Clamp restricts page to [1, Pages()], treating an empty window as one page
func (w *Window) Clamp(page int) int {
	last := w.Pages()
	if last < 1 {
		last = 1
	}
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// Offset returns the index of the first item on page
func (w *Window) Offset(page int) int {
	return (page - 1) * w.size
}

// Page returns the items on display page n, or nil when n is out of range
func (w *Window) Page(n int) []models.Repository {
	if n < 1 || n > w.Pages() {
		return nil
	}
	start := w.Offset(n)
	end := start + w.size
	if end > len(w.items) {
		end = len(w.items)
	}
	return w.items[start:end]
}
