package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes sent to clients. Authorization refusal is distinguishable
// from a generic internal failure.
const (
	CloseUnauthorized  = 4403
	CloseInternalError = websocket.CloseInternalServerErr // 1011
)

// socketConn wraps a gorilla connection with a write lock, since the
// underlying connection supports only one concurrent writer.
type socketConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newSocketConn(ws *websocket.Conn) *socketConn {
	return &socketConn{ws: ws}
}

func (c *socketConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// closeWithCode sends a close frame and tears down the transport.
func (c *socketConn) closeWithCode(code int, reason string) {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.mu.Unlock()
	_ = c.ws.Close()
}
