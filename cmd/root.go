package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// dirEnv overrides the working directory as the state root.
const dirEnv = "MODALKIT_DIR"

var (
	version string
	baseDir string
	dirFlag string
	debug   bool
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "modalkit",
	Short: "Modal dialog runtime with HTTP and terminal hosts",
	Long: `modalkit - A modal dialog runtime.

Dialogs live in an in-process HTML document driven by a single UI loop.
Serve the document to a browser, watch and drive it from a terminal, or
render it once to stdout.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging(os.Stderr)
	},
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		if name := firstNonFlagArg(os.Args[1:]); name != "" {
			if _, _, findErr := rootCmd.Find([]string{name}); findErr != nil {
				fmt.Fprintf(os.Stderr, "Run 'modalkit --help' for the list of commands.\n")
			}
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "hosts", Title: "Hosts:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Directory holding .modalkit state (default: $"+dirEnv+" or the working directory)")
}

func initBaseDir() {
	dir, err := resolveBaseDir(dirFlag, os.Getenv(dirEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	baseDir = dir
}

// resolveBaseDir picks the state root: the --dir flag, then the
// environment, then the working directory. The result is absolute.
func resolveBaseDir(flag, env string) (string, error) {
	dir := flag
	if dir == "" {
		dir = env
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cannot determine working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve --dir %q: %w", dir, err)
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("base dir %s is not a directory", abs)
	}
	return abs, nil
}

// getBaseDir returns the resolved state root.
func getBaseDir() string {
	return baseDir
}

// initLogging installs the default slog handler. --debug lowers the level.
func initLogging(w *os.File) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// firstNonFlagArg returns the first argument that is not a flag.
func firstNonFlagArg(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}
