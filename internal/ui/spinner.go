package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh/spinner"
)

// RunWithSpinner runs action while a spinner shows title. Without a
// terminal the title is printed once instead.
//
// Aborting the spinner cancels the context passed to action.
func RunWithSpinner(ctx context.Context, title string, action func(ctx context.Context) error) error {
	if !IsTerminal(os.Stdout) {
		fmt.Println(title)
		return action(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	err := spinner.New().
		Title(title).
		Context(ctx).
		Action(func() {
			done <- action(ctx)
		}).
		Run()

	select {
	case actionErr := <-done:
		return actionErr
	default:
	}

	// spinner ended before the action did
	cancel()
	if err == nil {
		err = context.Canceled
	}
	return fmt.Errorf("spinner error: %w", err)
}
