// Package server hosts the viewer: the embedded browser page, the
// websocket relay endpoint, and a REST surface over the dispatcher and
// the history store.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/backend"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/relay"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/session"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/store"
)

// Default listen address.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 3939
)

// Opts holds configuration for the viewer server.
type Opts struct {
	Session *session.Session
	Backend *backend.Backend
	Relay   *relay.Router

	// Config recomputes the merged viewer config for page rendering.
	Config func() map[string]any

	Store *store.Store // optional, backs the history endpoints
	Host  string       // defaults to DefaultHost
	Port  int          // defaults to DefaultPort
	Out   io.Writer    // defaults to os.Stdout
}

// Start launches the viewer server. It blocks until ctx is cancelled,
// then shuts down gracefully. The listener is bound before serving so
// that an occupied port surfaces as a clear error, not a dead server.
func Start(ctx context.Context, opts Opts) error {
	if opts.Session == nil {
		return fmt.Errorf("server: session is required")
	}
	if opts.Backend == nil {
		return fmt.Errorf("server: backend is required")
	}
	if opts.Relay == nil {
		return fmt.Errorf("server: relay is required")
	}
	if opts.Config == nil {
		return fmt.Errorf("server: config source is required")
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	engine, err := newEngine(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: port %d is already in use, choose a different port or stop the other service: %w", opts.Port, err)
	}

	srv := &http.Server{Handler: engine}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	fmt.Fprintf(opts.Out, "server: viewer running at http://%s/viewer\n", addr)

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	fmt.Fprintf(opts.Out, "server: stopped\n")
	return nil
}
