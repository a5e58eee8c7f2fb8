// Package client implements the control side of the viewer protocol:
// the Go counterpart of the library a control script uses to push
// models and configuration into a running server and to query it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/3DAlgoLab/vscode-ocp-cad-viewer/internal/relay"
)

const (
	// defaultDialTimeout bounds how long Dial keeps retrying a server
	// that is not up yet.
	defaultDialTimeout = 10 * time.Second
	// defaultQueryTimeout bounds the wait for a query reply.
	defaultQueryTimeout = 5 * time.Second
)

// Client is one control connection to a viewer server. Methods are
// serialized on an internal mutex, so a Client may be shared across
// goroutines; replies are matched to queries by that serialization.
type Client struct {
	mu      sync.Mutex
	ws      *websocket.Conn
	timeout time.Duration
}

// Dial connects to a viewer server at url (ws://host:port/ws). The
// server may still be starting up, so connection attempts are retried
// with exponential backoff until one succeeds, the retries time out,
// or ctx ends.
func Dial(ctx context.Context, url string) (*Client, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.MaxElapsedTime = defaultDialTimeout

	var ws *websocket.Conn
	op := func() error {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return err
		}
		ws = conn
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	return &Client{ws: ws, timeout: defaultQueryTimeout}, nil
}

// Close closes the connection. The server keeps any role this
// connection held until another connection takes it over.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.Close()
}

// write sends one framed message. Callers must hold c.mu.
func (c *Client) write(tag relay.Tag, payload []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, relay.Encode(tag, payload))
}

// SendModel forwards an already-rendered model document to the browser
// viewer. The document is delivered verbatim.
func (c *Client) SendModel(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(relay.TagModelData, data); err != nil {
		return fmt.Errorf("client: send model: %w", err)
	}
	return nil
}

// PushConfig forwards a viewer configuration change set to the browser.
func (c *Client) PushConfig(cfg map[string]any) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("client: encode config: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(relay.TagConfigPush, payload); err != nil {
		return fmt.Errorf("client: push config: %w", err)
	}
	return nil
}

// LoadModel sends a model document to the server's measurement
// dispatcher so that measurement tools can resolve its shapes.
func (c *Client) LoadModel(model []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(relay.TagBackendRequest, model); err != nil {
		return fmt.Errorf("client: load model: %w", err)
	}
	return nil
}

// RequestScreenshot asks the browser viewer to capture the current
// canvas and post it back to the server for saving under filename.
func (c *Client) RequestScreenshot(filename string) error {
	payload, err := json.Marshal(map[string]any{
		"type":     "screenshot",
		"filename": filename,
	})
	if err != nil {
		return fmt.Errorf("client: encode screenshot request: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(relay.TagCommand, payload); err != nil {
		return fmt.Errorf("client: request screenshot: %w", err)
	}
	return nil
}

// query sends one command string and reads the reply.
func (c *Client) query(q string) ([]byte, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(relay.TagCommand, payload); err != nil {
		return nil, err
	}
	if err := c.ws.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Status returns the viewer state map the server holds: active tool,
// selection, collapse state and whatever else browser updates merged.
func (c *Client) Status() (map[string]any, error) {
	raw, err := c.query("status")
	if err != nil {
		return nil, fmt.Errorf("client: status: %w", err)
	}
	var reply struct {
		Text map[string]any `json:"text"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("client: decode status reply: %w", err)
	}
	return reply.Text, nil
}

// Config returns the server's merged viewer configuration. The reply
// carries a "_splash" key reporting whether the splash model is still
// up.
func (c *Client) Config() (map[string]any, error) {
	raw, err := c.query("config")
	if err != nil {
		return nil, fmt.Errorf("client: config: %w", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("client: decode config reply: %w", err)
	}
	return cfg, nil
}
