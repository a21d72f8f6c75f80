package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/thesavant42/grit-find/internal/models"
)

// sanitizeInput removes null bytes and other invisible control characters from input
func sanitizeInput(s string) string {
	// Remove null bytes and other control characters (except whitespace)
	return strings.Map(func(r rune) rune {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			return -1
		}
		return r
	}, s)
}

func notEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(sanitizeInput(s)) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}

func runForm(field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).
		WithTheme(NewAppTheme()).
		WithAccessible(!Interactive()).
		Run()
}

// PromptQuery asks for search keywords
func PromptQuery() (string, error) {
	var query string
	err := runForm(huh.NewInput().
		Title("GitHub search keywords").
		Placeholder("e.g. terminal file manager").
		Value(&query).
		Validate(notEmpty("search keywords")))
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return strings.TrimSpace(sanitizeInput(query)), nil
}

// PromptDescription asks for a plain-language description for the query assist
func PromptDescription() (string, error) {
	var description string
	err := runForm(huh.NewInput().
		Title("Describe what you need").
		Description("OpenAI will craft the search query").
		Value(&description).
		Validate(notEmpty("description")))
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return strings.TrimSpace(sanitizeInput(description)), nil
}

// PromptChoice reads one selection command. Validation is left to the caller
// so it can report out-of-range numbers against the current window.
func PromptChoice() (string, error) {
	var choice string
	err := runForm(huh.NewInput().
		Title("Choice (number, n/p, c)").
		Value(&choice))
	if err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return strings.TrimSpace(sanitizeInput(choice)), nil
}

// SelectAsset lets the user pick one asset of release
func SelectAsset(release models.Release) (models.Asset, error) {
	opts := make([]huh.Option[int], len(release.Assets))
	for i, a := range release.Assets {
		opts[i] = huh.NewOption(a.Label(), i)
	}

	var idx int
	err := runForm(huh.NewSelect[int]().
		Title(fmt.Sprintf("Select asset to download from %s (%s)", release.TagName, release.DisplayName())).
		Description(fmt.Sprintf("%d assets available", len(release.Assets))).
		Options(opts...).
		Value(&idx))
	if err != nil {
		return models.Asset{}, fmt.Errorf("asset selection cancelled: %w", err)
	}
	return release.Assets[idx], nil
}
