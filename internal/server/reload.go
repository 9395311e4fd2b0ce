package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/conneroisu/gsp/internal/logging"
)

// reloadScript is injected into rendered HTML in development mode so open
// browsers refresh when a page is rebuilt.
const reloadScript = `<script>(function(){
var proto = location.protocol === "https:" ? "wss://" : "ws://";
var ws = new WebSocket(proto + location.host + "/_gsp/reload");
ws.onmessage = function(){ location.reload(); };
})();</script>`

// reloadHub tracks connected browsers and broadcasts reload notifications.
type reloadHub struct {
	log logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newReloadHub(log logging.Logger) *reloadHub {
	return &reloadHub{
		log:   log.WithComponent("reload"),
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and parks it until the client goes
// away.
func (h *reloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), err, "websocket accept failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Block until the peer closes; Reader returns on disconnect.
	ctx := r.Context()
	for {
		if _, _, err := conn.Reader(ctx); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// Broadcast tells every connected browser to reload.
func (h *reloadHub) Broadcast(ctx context.Context) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Write(ctx, websocket.MessageText, []byte("reload")); err != nil {
			h.log.Debug(ctx, "reload write failed", "error", err.Error())
		}
	}
}
