// Package relay routes wire frames between the control side (editor or
// script), the browser viewer, and the in-process measurement
// dispatcher. The router itself is stateless; everything persistent
// lives in the session, the dispatcher index, and the history store.
package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/backend"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/clipboard"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/screenshot"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/session"
	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/store"
)

// Router handles decoded frames from any connection. Each frame is
// handled to completion before the caller reads the next one from the
// same connection; ordering across connections is not guaranteed.
type Router struct {
	session   *session.Session
	backend   *backend.Backend
	config    func() map[string]any
	clipboard clipboard.Copier
	shots     *screenshot.Saver
	store     *store.Store
	out       io.Writer
	debug     bool
}

// Opts holds parameters for creating a Router.
type Opts struct {
	Session *session.Session
	Backend *backend.Backend

	// Config recomputes the merged viewer config. It is called once per
	// config query so that file edits are picked up without a restart.
	Config func() map[string]any

	Clipboard clipboard.Copier  // defaults to clipboard.Noop
	Shots     *screenshot.Saver // optional; screenshots are dropped with a log line when nil
	Store     *store.Store      // optional history recording
	Out       io.Writer         // defaults to os.Stdout
	Debug     bool
}

// New creates a Router.
func New(opts Opts) (*Router, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("relay: session is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("relay: backend is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("relay: config source is required")
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.Noop{}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		session:   opts.Session,
		backend:   opts.Backend,
		config:    opts.Config,
		clipboard: clip,
		shots:     opts.Shots,
		store:     opts.Store,
		out:       out,
		debug:     opts.Debug,
	}, nil
}

// Handle routes a single inbound frame. Routing paths:
//  1. Command → register control; answer status/config queries, forward
//     screenshot requests to the browser
//  2. ModelData → register control; forward payload to the browser and
//     clear the splash flag on success
//  3. ConfigPush → register control; forward payload to the browser
//  4. BrowserRegister → register browser
//  5. BrowserUpdate → register browser; save screenshots, swallow logs,
//     merge change sets and run the active tool
//  6. BackendRequest → rebuild the dispatcher index from the model tree
//  7. BackendResponse → register control; forward payload to the browser
//  8. Anything else → ignore
//
// Malformed frames and unavailable peers never take the session down;
// they are logged and the frame is dropped.
func (r *Router) Handle(conn session.Conn, raw []byte) {
	env, err := Decode(raw)
	if err != nil {
		log.Printf("relay: drop frame from %s: %v", conn.ID(), err)
		return
	}

	switch env.Tag {
	case TagCommand:
		r.handleCommand(conn, env.Payload)
	case TagModelData:
		r.handleModelData(conn, env.Payload)
	case TagConfigPush:
		r.handleConfigPush(conn, env.Payload)
	case TagBrowserRegister:
		r.registerBrowser(conn)
		fmt.Fprintf(r.out, "relay: browser registered as viewer client\n")
	case TagBrowserUpdate:
		r.handleBrowserUpdate(conn, env.Payload)
	case TagBackendRequest:
		r.handleBackendRequest(env.Payload)
	case TagBackendResponse:
		r.handleBackendResponse(conn, env.Payload)
	default:
		r.debugf("relay: ignoring unknown tag %q from %s", byte(env.Tag), conn.ID())
	}
}

// handleCommand answers control queries. The payload is either a bare
// query string ("status", "config") or a request object carrying a
// "type" field.
func (r *Router) handleCommand(conn session.Conn, payload []byte) {
	r.registerControl(conn)

	var query string
	if err := json.Unmarshal(payload, &query); err == nil {
		switch query {
		case "status":
			r.debugf("relay: status command")
			r.replyStatus(conn)
		case "config":
			r.debugf("relay: config command")
			r.replyConfig(conn)
		default:
			r.debugf("relay: unknown command %q", query)
		}
		return
	}

	var cmd struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Printf("relay: parse command from %s: %v", conn.ID(), err)
		return
	}
	if cmd.Type == "screenshot" {
		r.debugf("relay: screenshot command")
		r.forwardToBrowser("screenshot request", payload)
		return
	}
	r.debugf("relay: unknown command type %q", cmd.Type)
}

func (r *Router) handleModelData(conn session.Conn, payload []byte) {
	r.registerControl(conn)
	r.debugf("relay: received a new model")
	if r.forwardToBrowser("model", payload) {
		r.session.ClearSplash()
	}
}

func (r *Router) handleConfigPush(conn session.Conn, payload []byte) {
	r.registerControl(conn)
	r.debugf("relay: received a config")
	if r.forwardToBrowser("config push", payload) {
		r.debugf("relay: posted config to viewer")
	}
}

// handleBrowserUpdate processes a browser-side event: a screenshot to
// persist, a log line, or a set of ui state changes.
func (r *Router) handleBrowserUpdate(conn session.Conn, payload []byte) {
	r.registerBrowser(conn)

	var msg struct {
		Command string          `json:"command"`
		Text    json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("relay: parse browser update from %s: %v", conn.ID(), err)
		return
	}

	switch msg.Command {
	case "screenshot":
		r.saveScreenshot(msg.Text)
	case "log":
		r.debugf("relay: viewer log: %s", msg.Text)
	case "started":
		r.debugf("relay: viewer has started")
	default:
		r.applyChanges(msg.Text)
	}
}

func (r *Router) handleBackendRequest(payload []byte) {
	root, err := backend.DecodeModel(payload)
	if err != nil {
		log.Printf("relay: %v", err)
		return
	}
	splash := r.session.SplashShown()
	report := r.backend.LoadModel(root)
	if r.store != nil {
		if err := r.store.RecordLoad(report, splash); err != nil {
			log.Printf("relay: record load: %v", err)
		}
	}
	r.debugf("relay: model data sent to dispatcher")
}

func (r *Router) handleBackendResponse(conn session.Conn, payload []byte) {
	r.registerControl(conn)
	if r.forwardToBrowser("backend response", payload) {
		r.debugf("relay: backend response forwarded")
	}
}

// saveScreenshot persists a browser-captured frame. Failures are
// logged; they never take the session down.
func (r *Router) saveScreenshot(text json.RawMessage) {
	var shot struct {
		Filename string `json:"filename"`
		Data     string `json:"data"`
	}
	if err := json.Unmarshal(text, &shot); err != nil {
		log.Printf("relay: parse screenshot update: %v", err)
		return
	}
	if r.shots == nil {
		log.Printf("relay: screenshot %q dropped, no save directory configured", shot.Filename)
		return
	}
	r.debugf("relay: received screenshot data for file %q", shot.Filename)
	meta, err := r.shots.SaveDataURL(shot.Filename, shot.Data)
	if err != nil {
		log.Printf("relay: save screenshot %q: %v", shot.Filename, err)
		return
	}
	if r.store != nil {
		if err := r.store.RecordScreenshot(meta); err != nil {
			log.Printf("relay: record screenshot: %v", err)
		}
	}
}

// applyChanges merges a browser change set into the status table,
// mirrors a selection change onto the clipboard, and hands the set to
// the dispatcher. Tool responses go back to the browser.
func (r *Router) applyChanges(text json.RawMessage) {
	var changes map[string]any
	if err := json.Unmarshal(text, &changes); err != nil {
		log.Printf("relay: parse change set: %v", err)
		return
	}
	r.debugf("relay: received %d incremental ui changes", len(changes))

	r.session.MergeStatus(changes)
	if sel, ok := changes["selected"]; ok {
		r.copySelection(sel)
	}

	for _, resp := range r.backend.ApplyUpdates(changes) {
		data, err := json.Marshal(resp)
		if err != nil {
			log.Printf("relay: marshal tool response: %v", err)
			continue
		}
		r.forwardToBrowser("tool response", data)
	}
}

// copySelection puts the comma-joined selection on the clipboard.
func (r *Router) copySelection(sel any) {
	var ids []string
	switch v := sel.(type) {
	case []any:
		ids = make([]string, len(v))
		for i, item := range v {
			ids[i] = fmt.Sprint(item)
		}
	case []string:
		ids = v
	case string:
		ids = []string{v}
	}
	if err := r.clipboard.Copy(strings.Join(ids, ",")); err != nil {
		log.Printf("relay: copy selection: %v", err)
	}
}

func (r *Router) replyStatus(conn session.Conn) {
	reply, err := json.Marshal(map[string]any{"text": r.session.Status()})
	if err != nil {
		log.Printf("relay: marshal status reply: %v", err)
		return
	}
	if err := conn.Send(reply); err != nil {
		log.Printf("relay: send status reply to %s: %v", conn.ID(), err)
	}
}

func (r *Router) replyConfig(conn session.Conn) {
	cfg := r.config()
	cfg["_splash"] = r.session.SplashShown()
	reply, err := json.Marshal(cfg)
	if err != nil {
		log.Printf("relay: marshal config reply: %v", err)
		return
	}
	if err := conn.Send(reply); err != nil {
		log.Printf("relay: send config reply to %s: %v", conn.ID(), err)
	}
}

// forwardToBrowser sends a payload to the registered browser, stripped
// of its envelope. A missing browser or a failed send drops the payload
// with one diagnostic; there is no retry.
func (r *Router) forwardToBrowser(what string, payload []byte) bool {
	browser := r.session.Browser()
	if browser == nil {
		fmt.Fprintf(r.out, "relay: no browser registered, %s dropped; open or refresh the viewer page\n", what)
		return false
	}
	if err := browser.Send(payload); err != nil {
		log.Printf("relay: forward %s to browser %s: %v", what, browser.ID(), err)
		return false
	}
	return true
}

func (r *Router) registerControl(conn session.Conn) {
	if prev := r.session.RegisterControl(conn); prev != nil && prev.ID() != conn.ID() {
		r.debugf("relay: control connection %s displaced %s", conn.ID(), prev.ID())
	}
}

func (r *Router) registerBrowser(conn session.Conn) {
	if prev := r.session.RegisterBrowser(conn); prev != nil && prev.ID() != conn.ID() {
		r.debugf("relay: browser connection %s displaced %s", conn.ID(), prev.ID())
	}
}

func (r *Router) debugf(format string, args ...any) {
	if r.debug {
		fmt.Fprintf(r.out, format+"\n", args...)
	}
}
