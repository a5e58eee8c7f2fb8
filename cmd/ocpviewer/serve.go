package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/backend"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/clipboard"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/config"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/discover"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/relay"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/screenshot"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/server"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/session"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/store"
)

// pathDisabled turns off an optional file-backed feature when passed
// for --db or --screenshot-dir.
const pathDisabled = "none"

type serveFlags struct {
	host       string
	port       int
	configPath string
	dbPath     string
	shotDir    string
	mdns       bool
	debug      bool
	createFile bool

	theme       string
	treeWidth   int
	glass       bool
	tools       bool
	axes        bool
	axes0       bool
	gridXY      bool
	gridXZ      bool
	gridYZ      bool
	perspective bool
	transparent bool
	blackEdges  bool
	control     string
	up          string
	collapse    string
}

func newServeCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the viewer server",
		Long:  "Starts the websocket relay, the browser viewer page and the measurement backend, and keeps them running until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.host, "host", server.DefaultHost, "address to bind")
	cmd.Flags().IntVarP(&f.port, "port", "p", server.DefaultPort, "port to listen on")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "viewer config file (default ~/"+config.FileName+")")
	cmd.Flags().StringVar(&f.dbPath, "db", "", `history database (default ~/.ocpviewer.db, "none" disables)`)
	cmd.Flags().StringVar(&f.shotDir, "screenshot-dir", "", `screenshot directory (default ~/ocpviewer-screenshots, "none" disables)`)
	cmd.Flags().BoolVar(&f.mdns, "mdns", false, "announce the viewer on the local network")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "log message routing")
	cmd.Flags().BoolVar(&f.createFile, "create-configfile", false, "write the default config file and exit")

	cmd.Flags().StringVar(&f.theme, "theme", "browser", "viewer theme: browser, light or dark")
	cmd.Flags().IntVar(&f.treeWidth, "tree-width", 240, "navigation tree width in pixels")
	cmd.Flags().BoolVar(&f.glass, "glass", true, "overlay the tree on the canvas")
	cmd.Flags().BoolVar(&f.tools, "tools", true, "show the toolbar")
	cmd.Flags().BoolVar(&f.axes, "axes", false, "show axes")
	cmd.Flags().BoolVar(&f.axes0, "axes0", false, "put axes at the origin")
	cmd.Flags().BoolVar(&f.gridXY, "grid-xy", false, "show the xy grid")
	cmd.Flags().BoolVar(&f.gridXZ, "grid-xz", false, "show the xz grid")
	cmd.Flags().BoolVar(&f.gridYZ, "grid-yz", false, "show the yz grid")
	cmd.Flags().BoolVar(&f.perspective, "perspective", false, "use a perspective camera")
	cmd.Flags().BoolVar(&f.transparent, "transparent", false, "render objects transparent")
	cmd.Flags().BoolVar(&f.blackEdges, "black-edges", false, "render edges black")
	cmd.Flags().StringVar(&f.control, "control", "trackball", "camera control: trackball or orbit")
	cmd.Flags().StringVar(&f.up, "up", "Z", "up direction: Z, Y or L")
	cmd.Flags().StringVar(&f.collapse, "collapse", "R", "initial tree collapse: 1, E, C or R")
	return cmd
}

// collectOverrides maps the viewer flags the user actually set onto
// config file keys. The glass and tools flags invert onto the
// no_glass/no_tools keys the file uses.
func collectOverrides(cmd *cobra.Command, f serveFlags) map[string]any {
	overrides := make(map[string]any)
	set := func(flag, key string, value any) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}

	set("theme", "theme", f.theme)
	set("tree-width", "tree_width", f.treeWidth)
	set("glass", "no_glass", !f.glass)
	set("tools", "no_tools", !f.tools)
	set("axes", "axes", f.axes)
	set("axes0", "axes0", f.axes0)
	set("grid-xy", "grid_xy", f.gridXY)
	set("grid-xz", "grid_xz", f.gridXZ)
	set("grid-yz", "grid_yz", f.gridYZ)
	set("perspective", "perspective", f.perspective)
	set("transparent", "transparent", f.transparent)
	set("black-edges", "black_edges", f.blackEdges)
	set("control", "control", f.control)
	set("up", "up", f.up)
	set("collapse", "collapse", f.collapse)
	return overrides
}

// resolveHomePath picks the path for an optional feature: the explicit
// flag value, the home-relative fallback, or empty when disabled.
func resolveHomePath(explicit, fallback string) (string, error) {
	if explicit == pathDisabled {
		return "", nil
	}
	if explicit != "" {
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("serve: resolve home: %w", err)
	}
	return filepath.Join(home, fallback), nil
}

func runServe(cmd *cobra.Command, f serveFlags) error {
	out := cmd.OutOrStdout()

	cfgPath := f.configPath
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	if f.createFile {
		if err := config.Write(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote default config to %s\n", cfgPath)
		return nil
	}

	overrides := collectOverrides(cmd, f)
	base, err := config.Load(cfgPath, overrides)
	if err != nil {
		return err
	}
	cfgFn := func() map[string]any {
		cfg, err := config.Load(cfgPath, overrides)
		if err != nil {
			log.Printf("serve: reload config: %v", err)
			snapshot := make(map[string]any, len(base))
			for k, v := range base {
				snapshot[k] = v
			}
			return snapshot
		}
		return cfg
	}

	sess := session.New()
	be := backend.New(backend.Opts{Out: out, Debug: f.debug})

	var st *store.Store
	dbPath, err := resolveHomePath(f.dbPath, ".ocpviewer.db")
	if err != nil {
		return err
	}
	if dbPath != "" {
		if st, err = store.Open(dbPath); err != nil {
			return err
		}
	}

	shotDir, err := resolveHomePath(f.shotDir, "ocpviewer-screenshots")
	if err != nil {
		return err
	}
	var shots *screenshot.Saver
	if shotDir != "" {
		if err := os.MkdirAll(shotDir, 0755); err != nil {
			return fmt.Errorf("serve: create screenshot dir: %w", err)
		}
		if shots, err = screenshot.New(screenshot.Opts{Dir: shotDir, Thumbnails: true, Out: out}); err != nil {
			return err
		}
	}

	r, err := relay.New(relay.Opts{
		Session:   sess,
		Backend:   be,
		Config:    cfgFn,
		Clipboard: clipboard.System{},
		Shots:     shots,
		Store:     st,
		Out:       out,
		Debug:     f.debug,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if st != nil {
		jan, err := store.NewJanitor(store.JanitorOpts{Store: st, ShotDir: shotDir, Out: out})
		if err != nil {
			return err
		}
		go jan.Run(ctx)
	}

	if f.mdns {
		go func() {
			if err := discover.Announce(ctx, discover.Opts{Port: f.port, Out: out}); err != nil {
				log.Printf("serve: mdns: %v", err)
			}
		}()
	}

	return server.Start(ctx, server.Opts{
		Session: sess,
		Backend: be,
		Relay:   r,
		Config:  cfgFn,
		Store:   st,
		Host:    f.host,
		Port:    f.port,
		Out:     out,
	})
}
