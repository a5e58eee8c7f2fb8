package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// maxMessageSize caps inbound frames. Tessellated models are large.
const maxMessageSize = 32 << 20

// upgrader accepts any origin: the server binds to loopback by default,
// and remote exposure is the operator's own call.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsConn adapts a websocket connection to the session.Conn interface.
// gorilla allows one concurrent writer; the mutex serializes sends from
// the relay and direct replies.
type wsConn struct {
	id string
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// handleWS upgrades the connection and pumps frames into the relay
// until the peer goes away. Closure ends the loop but does not release
// any session role the connection held; the next claimant takes over.
func handleWS(opts Opts) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("server: websocket upgrade: %v", err)
			return
		}
		defer ws.Close()

		ws.SetReadLimit(maxMessageSize)
		conn := &wsConn{id: uuid.NewString(), ws: ws}

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("server: connection %s closed: %v", conn.id, err)
				}
				return
			}
			opts.Relay.Handle(conn, raw)
		}
	}
}
