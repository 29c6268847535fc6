package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marcus/modalkit/pkg/modal"
	"github.com/marcus/modalkit/pkg/monitor"
)

const (
	formatHTML = "html"
	formatTerm = "term"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build a dialog and print the document",
	Long: `Build a dialog from flags, run the UI loop to completion and print the
result.

On a terminal the dialog is drawn the way the monitor shows it. Otherwise,
or with --format html, the document HTML is printed.`,
	Example: `  modalkit render --title "Edit" --body "<p>Hello</p>"
  modalkit render --confirm --title "Delete?" --format html
  modalkit render --id upload --error "File too large"`,
	GroupID: "system",
	RunE:    runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("id", modal.GlobalID, "Dialog id")
	renderCmd.Flags().String("title", "", "Header title (HTML)")
	renderCmd.Flags().String("body", "", "Body content (HTML)")
	renderCmd.Flags().String("error", "", "Error banner message")
	renderCmd.Flags().Bool("confirm", false, "Open the global confirm dialog instead; --title and --body fill it")
	renderCmd.Flags().String("format", "", "Output format: html or term (default: term on a terminal)")
}

// renderOptions describes one render invocation.
type renderOptions struct {
	ID      string
	Title   string
	Body    string
	Error   string
	Confirm bool
	Format  string
	Width   int
	Height  int
}

func runRender(cmd *cobra.Command, args []string) error {
	opts := renderOptions{}
	opts.ID, _ = cmd.Flags().GetString("id")
	opts.Title, _ = cmd.Flags().GetString("title")
	opts.Body, _ = cmd.Flags().GetString("body")
	opts.Error, _ = cmd.Flags().GetString("error")
	opts.Confirm, _ = cmd.Flags().GetBool("confirm")
	opts.Format, _ = cmd.Flags().GetString("format")

	fd := int(os.Stdout.Fd())
	if opts.Format == "" {
		opts.Format = formatHTML
		if term.IsTerminal(fd) {
			opts.Format = formatTerm
		}
	}
	opts.Width, opts.Height = 80, 24
	if w, h, err := term.GetSize(fd); err == nil {
		opts.Width, opts.Height = w, h
	}

	out, err := renderDocument(getBaseDir(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// renderDocument builds a UI, applies opts and returns the drained result.
func renderDocument(dir string, opts renderOptions) (string, error) {
	if opts.Format != formatHTML && opts.Format != formatTerm {
		return "", fmt.Errorf("unknown format %q (want html or term)", opts.Format)
	}

	ui, err := newUI(dir, slog.Default())
	if err != nil {
		return "", err
	}
	ui.Init()

	if opts.Confirm {
		ui.Confirm(modal.ConfirmConfig{Header: opts.Title, Body: opts.Body})
	} else {
		m := ui.Lookup(opts.ID)
		if m == nil {
			m = ui.New(opts.ID)
		}
		if !m.IsFilled() && (opts.Title != "" || opts.Body != "") {
			m.Clear()
		}
		if opts.Title != "" {
			m.SetTitle(opts.Title)
		}
		if opts.Body != "" {
			m.SetBody(opts.Body)
		}
		if opts.Error != "" {
			m.SetErrorMessage(opts.Error)
		}
		m.Show()
	}
	ui.Loop().Drain()

	if opts.Format == formatTerm {
		return monitor.Render(ui, opts.Width, opts.Height), nil
	}
	return ui.Document().HTML()
}
