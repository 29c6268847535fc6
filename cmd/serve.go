package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marcus/modalkit/internal/serve"
	"github.com/marcus/modalkit/pkg/modal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the modalkit HTTP server",
	Long: `Start an HTTP server that hosts the dialog document.

GET / serves the document to a browser with a small client shim that
forwards clicks and reloads when the document changes. The JSON API under
/v1 creates, fills, shows and closes dialogs and opens confirmations.

If --port is 0 (the default), a random available port is assigned.
The actual port is written to .modalkit/serve-port for discovery.`,
	GroupID: "hosts",
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

// addServeFlags registers the listener flags shared by serve and monitor.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (0 = auto-assign)")
	cmd.Flags().StringP("addr", "a", "localhost", "Address to bind to")
	cmd.Flags().String("token", "", "Bearer token for authentication (optional)")
	cmd.Flags().String("cors", "", "Allowed CORS origin (optional, e.g. http://localhost:3000)")
	cmd.Flags().Duration("interval", time.Second, "Poll interval for SSE refresh events")
}

func serveConfigFromFlags(cmd *cobra.Command) serve.ServeConfig {
	port, _ := cmd.Flags().GetInt("port")
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("token")
	cors, _ := cmd.Flags().GetString("cors")
	interval, _ := cmd.Flags().GetDuration("interval")

	return serve.ServeConfig{
		Port:         port,
		Addr:         addr,
		Token:        token,
		CORSOrigin:   cors,
		PollInterval: interval,
	}
}

// listener is a bound server plus its port file.
type listener struct {
	srv  *serve.Server
	ln   net.Listener
	port int
	dir  string
}

// listen binds the server and records the port file.
func listen(ui *modal.UI, dir string, config serve.ServeConfig) (*listener, error) {
	// Start listener (use net.Listen for auto-port support)
	listenAddr := fmt.Sprintf("%s:%d", config.Addr, config.Port)
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", listenAddr, err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port

	instanceID, err := serve.GenerateInstanceID()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("generate instance id: %w", err)
	}

	portInfo := &serve.PortInfo{
		Port:       actualPort,
		PID:        os.Getpid(),
		StartedAt:  time.Now(),
		InstanceID: instanceID,
	}
	if err := serve.WritePortFile(dir, portInfo); err != nil {
		ln.Close()
		return nil, fmt.Errorf("write port file: %w", err)
	}

	return &listener{
		srv:  serve.NewServer(ui, dir, instanceID, config),
		ln:   ln,
		port: actualPort,
		dir:  dir,
	}, nil
}

// serve runs the server until ctx ends and removes the port file.
func (l *listener) serve(ctx context.Context) error {
	defer func() { _ = serve.DeletePortFile(l.dir) }()
	return l.srv.Serve(ctx, l.ln)
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := getBaseDir()
	config := serveConfigFromFlags(cmd)

	ui, err := newUI(dir, slog.Default())
	if err != nil {
		return err
	}

	l, err := listen(ui, dir, config)
	if err != nil {
		return err
	}

	// Print startup banner to stderr
	fmt.Fprintf(os.Stderr, "modalkit serve listening on http://%s:%d\n", config.Addr, l.port)
	fmt.Fprintf(os.Stderr, "  base dir:   %s\n", dir)
	fmt.Fprintf(os.Stderr, "  port file:  %s\n", filepath.Join(dir, ".modalkit", "serve-port"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runLoop(ctx, ui) })
	g.Go(func() error { return l.serve(ctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Fprintf(os.Stderr, "modalkit serve stopped\n")
	return nil
}
