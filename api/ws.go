package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jetsharklambo/pu2-toolkit/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser frontends connect from arbitrary origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// hub fans snapshot updates out to the pages watching each game.
type hub struct {
	mu      sync.Mutex
	clients map[string]map[*wsClient]bool
}

func newHub() *hub {
	return &hub{clients: make(map[string]map[*wsClient]bool)}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (h *hub) add(game string, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[game] == nil {
		h.clients[game] = make(map[*wsClient]bool)
	}
	h.clients[game][cl] = true
}

func (h *hub) remove(game string, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.clients[game]; set[cl] {
		delete(set, cl)
		close(cl.send)
		if len(set) == 0 {
			delete(h.clients, game)
		}
	}
}

func (h *hub) broadcast(game string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.WithError(err).Error("marshal live update")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients[game] {
		select {
		case cl.send <- raw:
		default:
			// Slow consumer; it will catch up on its next refresh.
		}
	}
}

// live upgrades the request and seeds the page with the current
// snapshot before streaming updates.
func (s *Server) live(c *gin.Context) {
	code := c.Param("code")
	if !core.IsGameCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game code"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	cl := &wsClient{conn: conn, send: make(chan []byte, 8)}
	s.hub.add(code, cl)
	go cl.writePump()

	if snap, err := s.svc.Snapshot(c.Request.Context(), code); err == nil {
		if raw, err := json.Marshal(toSnapshotResponse(snap)); err == nil {
			cl.send <- raw
		}
	} else {
		log.WithError(err).WithField("game", code).Warn("initial snapshot failed")
	}

	go cl.readPump(s.hub, code)
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames so pings are answered and closes are
// noticed.
func (cl *wsClient) readPump(h *hub, game string) {
	defer func() {
		h.remove(game, cl)
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
