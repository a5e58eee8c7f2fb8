package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// handleEvents streams viewer state over SSE: status_update whenever
// the status table changes, model_update when the shape index is
// replaced, heartbeat to keep intermediaries from closing the stream.
func handleEvents(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		var lastStatus []byte
		lastShapes := -1

		ctx := c.Request.Context()
		poll := time.NewTicker(time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer poll.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-poll.C:
				status, err := opts.Session.StatusJSON()
				if err == nil && !bytes.Equal(status, lastStatus) {
					lastStatus = status
					writeSSE(c.Writer, "status_update", json.RawMessage(status))
					c.Writer.Flush()
				}
				if n := opts.Backend.ShapeCount(); n != lastShapes {
					if lastShapes >= 0 {
						writeSSE(c.Writer, "model_update", map[string]int{"shapes": n})
						c.Writer.Flush()
					}
					lastShapes = n
				}
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
}
