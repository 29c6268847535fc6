package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/modalkit/internal/config"
	"github.com/marcus/modalkit/internal/dom"
	"github.com/marcus/modalkit/internal/loop"
	"github.com/marcus/modalkit/pkg/modal"
)

// newUI builds a dialog context over an empty document, using the config
// stored under dir.
func newUI(dir string, logger *slog.Logger) (*modal.UI, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	l := loop.New(logger)
	return modal.NewUI(dom.New(), l, modal.WithConfig(cfg), modal.WithLogger(logger)), nil
}

// runLoop runs the UI loop until ctx ends. Cancellation is not an error.
func runLoop(ctx context.Context, ui *modal.UI) error {
	err := ui.Loop().Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
