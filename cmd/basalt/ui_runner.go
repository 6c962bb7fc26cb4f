package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"basalt/internal/pipeline"
	"basalt/internal/ui"
)

type runOutcome struct {
	result *pipeline.Result
	err    error
}

// runWithUI executes an emission run behind the interactive progress view.
// The run proceeds in its own goroutine; the view consumes its events and
// quits when the event stream closes.
func runWithUI(ctx context.Context, title string, decls []string, opts pipeline.Options) (*pipeline.Result, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Report = func(ev pipeline.Event) { events <- ev }
		res, err := pipeline.Run(ctx, optsCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, decls, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
