package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/marcus/modalkit/pkg/modal"
	"github.com/marcus/modalkit/pkg/monitor"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch and drive dialogs in the terminal",
	Long: `Render the visible dialogs in the terminal and drive them with the
keyboard and mouse.

The monitor also starts the HTTP server so other processes can open
dialogs through the JSON API while you answer them here. Pass --no-serve
to run the terminal host alone. Logs go to .modalkit/monitor.log.`,
	GroupID: "hosts",
	RunE:    runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addServeFlags(monitorCmd)
	monitorCmd.Flags().Bool("no-serve", false, "Do not start the HTTP server")
	monitorCmd.Flags().Duration("refresh", monitor.DefaultRefresh, "Snapshot refresh interval")
	monitorCmd.Flags().Bool("confirm", false, "Open the global confirm dialog on start")
}

// errNotTerminal is returned when the monitor has no terminal to draw on.
var errNotTerminal = errors.New("monitor requires an interactive terminal")

func runMonitor(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errNotTerminal
	}

	dir := getBaseDir()
	noServe, _ := cmd.Flags().GetBool("no-serve")
	refresh, _ := cmd.Flags().GetDuration("refresh")
	openConfirm, _ := cmd.Flags().GetBool("confirm")

	logger, closeLog, err := fileLogger(dir)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ui, err := newUI(dir, logger)
	if err != nil {
		return err
	}
	if openConfirm {
		ui.Loop().Post(func() { ui.Confirm(modal.ConfirmConfig{}) })
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runLoop(ctx, ui) })

	if !noServe {
		l, err := listen(ui, dir, serveConfigFromFlags(cmd))
		if err != nil {
			return err
		}
		logger.Info("monitor serving", "port", l.port)
		g.Go(func() error { return l.serve(ctx) })
	}

	p := tea.NewProgram(
		monitor.NewModel(ui, refresh, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, runErr := p.Run()
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("monitor: %w", runErr)
	}
	return nil
}

// fileLogger writes logs to .modalkit/monitor.log so they do not tear the
// terminal UI.
func fileLogger(dir string) (*slog.Logger, func(), error) {
	path := filepath.Join(dir, ".modalkit", "monitor.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	logger.Info("monitor started", "pid", os.Getpid())
	return logger, func() { f.Close() }, nil
}
