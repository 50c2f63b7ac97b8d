package crap

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// wsConn adapts a websocket connection to an io.ReadWriteCloser.
// Each Write is sent as one binary message, reads span message boundaries.
// A close from the peer, or the peer vanishing, reads as io.EOF.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

// NewWebsocketConn returns an io.ReadWriteCloser exchanging binary messages over ws.
func NewWebsocketConn(ws *websocket.Conn) io.ReadWriteCloser {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (n int, err error) {
	for n == 0 && err == nil {
		if c.r == nil {
			var mt int
			if mt, c.r, err = c.ws.NextReader(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					err = io.EOF
				}
				c.r = nil
				return
			}
			if mt != websocket.BinaryMessage {
				c.r = nil
				continue
			}
		}
		if n, err = c.r.Read(p); err == io.EOF {
			c.r = nil
			err = nil
		}
	}
	return
}

func (c *wsConn) Write(p []byte) (n int, err error) {
	if err = c.ws.WriteMessage(websocket.BinaryMessage, p); err == nil {
		n = len(p)
	}
	return
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

// DialWebsocket connects to a websocket server endpoint at url.
// It can be used as the Client Dial function.
func DialWebsocket(ctx context.Context, url string) (io.ReadWriteCloser, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewWebsocketConn(ws), nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  FrameMaxSize,
	WriteBufferSize: FrameMaxSize,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebsocketHandler returns a http.Handler that upgrades the connection
// to a websocket and serves a Session over it.
func (srv *Server) WebsocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srv.acquire()
		defer srv.release()
		srv.ServeConn(NewWebsocketConn(ws))
	})
}
