package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/thesavant42/grit-find/internal/models"
)

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(SuccessStyle.Render(message))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(ErrorStyle.Render("Error: " + message))
}

// PrintInfo prints a neutral status line
func PrintInfo(message string) {
	fmt.Println(InfoStyle.Render(message))
}

// PrintWarning prints a message that does not end the run
func PrintWarning(message string) {
	fmt.Println(AccentStyle.Render(message))
}

// PrintRateLimit prints the remaining GitHub quota
func PrintRateLimit(remaining int, reset time.Time) {
	fmt.Println(DimStyle.Render(fmt.Sprintf("GitHub rate limit: %d requests remaining, resets at %s",
		remaining, reset.Local().Format(time.Kitchen))))
}

// RenderResults renders one display window. Numbers restart at 1 on every
// window; they are what the user types to select.
func RenderResults(repos []models.Repository, page, pages, total int) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(TitleStyle.Render(fmt.Sprintf("Showing page %d of %d (%d repositories with releases).", page, pages, total)))
	sb.WriteString("\n")
	sb.WriteString(HintStyle.Render("Enter number to select, 'n' for next page, 'p' for previous page, or 'c' to cancel."))
	sb.WriteString("\n")

	for i, r := range repos {
		sb.WriteString(fmt.Sprintf("%3d. %s (★%d): %s\n",
			i+1,
			AccentStyle.Render(r.FullName),
			r.StargazersCount,
			NormalStyle.Render(r.DescriptionOr("no description"))))
	}

	return sb.String()
}
