package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"closconv/internal/driver"
	"closconv/internal/hir"
	"closconv/internal/ui"
)

type rewriteOutcome struct {
	result *driver.Result
	err    error
}

func runRewriteWithUI(ctx context.Context, title string, methods []string, m *hir.Module, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan rewriteOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.RewriteModule(ctx, m, opts)
		outcomeCh <- rewriteOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, methods, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
