package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/modalkit/internal/loop"
	"github.com/marcus/modalkit/pkg/modal"
)

// ServeConfig holds the configuration for the HTTP server.
type ServeConfig struct {
	Port         int
	Addr         string
	Token        string
	CORSOrigin   string
	PollInterval time.Duration
}

// Server is the modalkit serve HTTP server. Every handler touches the dialog
// document through the UI loop.
type Server struct {
	ui         *modal.UI
	loop       *loop.Loop
	baseDir    string
	instanceID string
	config     ServeConfig
	mux        *http.ServeMux
	sseHub     *SSEHub
	decisions  *decisionLog
	http       *http.Server
}

// NewServer creates a new Server and registers all routes. The shared
// dialogs are created on the loop before the first request is served.
func NewServer(ui *modal.UI, baseDir, instanceID string, config ServeConfig) *Server {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	s := &Server{
		ui:         ui,
		loop:       ui.Loop(),
		baseDir:    baseDir,
		instanceID: instanceID,
		config:     config,
		mux:        http.NewServeMux(),
		decisions:  newDecisionLog(),
	}
	s.sseHub = NewSSEHub(s.revision, config.PollInterval)
	s.loop.Post(ui.Init)

	s.registerRoutes()
	return s
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)

	// Final order (outermost to innermost):
	//   recovery -> logging -> CORS -> auth -> handler
	h = s.authMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)

	return h
}

// ListenAndServe starts the HTTP server and the event hub, and shuts both
// down when the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Addr, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.sseHub.Start(ctx)
	defer s.sseHub.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server. If the server has not been
// started, this is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ============================================================================
// Route Registration
// ============================================================================

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)

	// Registry
	s.mux.HandleFunc("GET /v1/modals", s.handleListModals)
	s.mux.HandleFunc("POST /v1/modals", s.handleCreateModal)
	s.mux.HandleFunc("GET /v1/modals/{id}", s.handleGetModal)
	s.mux.HandleFunc("POST /v1/modals/close-all", s.handleCloseAll)

	// Dialog operations
	s.mux.HandleFunc("POST /v1/modals/{id}/content", s.handleContent)
	s.mux.HandleFunc("POST /v1/modals/{id}/title", s.handleTitle)
	s.mux.HandleFunc("POST /v1/modals/{id}/body", s.handleBody)
	s.mux.HandleFunc("POST /v1/modals/{id}/error", s.handleError)
	s.mux.HandleFunc("POST /v1/modals/{id}/show", s.handleShow)
	s.mux.HandleFunc("POST /v1/modals/{id}/close", s.handleClose)
	s.mux.HandleFunc("POST /v1/modals/{id}/loader", s.handleLoader)
	s.mux.HandleFunc("POST /v1/modals/{id}/clear-error", s.handleClearError)

	// Confirmation
	s.mux.HandleFunc("POST /v1/confirm", s.handleConfirm)
	s.mux.HandleFunc("GET /v1/confirm/{request_id}", s.handleGetDecision)

	// Interaction
	s.mux.HandleFunc("POST /v1/click", s.handleClick)

	// SSE events
	s.mux.HandleFunc("GET /v1/events", s.handleEvents)
}

// onLoop runs fn on the UI loop and waits for it.
func (s *Server) onLoop(ctx context.Context, fn func()) error {
	if err := s.loop.Do(ctx, fn); err != nil {
		return fmt.Errorf("ui loop: %w", err)
	}
	return nil
}

// Claim states for commitOnLoop.
const (
	commitWaiting int32 = iota
	commitClaimed
	commitAbandoned
)

// commitOnLoop is onLoop for work with effects outside the document. fn
// either runs to completion and commitOnLoop returns nil, or it never runs:
// once ctx ends, the queued task becomes a no-op.
func (s *Server) commitOnLoop(ctx context.Context, fn func()) error {
	var state atomic.Int32
	ran := make(chan struct{})

	s.loop.Post(func() {
		if !state.CompareAndSwap(commitWaiting, commitClaimed) {
			return
		}
		defer close(ran)
		fn()
	})

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(commitWaiting, commitAbandoned) {
			return fmt.Errorf("ui loop: %w", ctx.Err())
		}
		// Already running on the loop; it finishes promptly.
		<-ran
		return nil
	}
}

// ============================================================================
// Middleware
// ============================================================================

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush lets the SSE handler stream through the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// recoveryMiddleware catches panics, logs the stack trace, and returns a 500
// error envelope.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				slog.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(stack),
				)
				WriteError(w, ErrInternal, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with a request id, method, path, status
// code, and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)

		sr := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sr, r)
		slog.Info("req",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.code,
			"dur", time.Since(start).String(),
		)
	})
}

// corsMiddleware handles CORS preflight and sets response headers when
// CORSOrigin is configured. If no CORS origin is configured, the middleware
// is a no-op pass-through.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.CORSOrigin == "" {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if s.config.CORSOrigin != "*" && s.config.CORSOrigin != origin {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the Bearer token when the server is configured with
// a token. GET /health is always exempt from authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Token == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodGet && r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			WriteError(w, ErrUnauthorized, "missing authorization header", http.StatusUnauthorized)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			WriteError(w, ErrUnauthorized, "invalid authorization format", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != s.config.Token {
			WriteError(w, ErrUnauthorized, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
