package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 5 * time.Second
)

// Hub keeps one websocket per user and pushes events to it.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
	// readTimeout drops a silent peer. Pings go out at 9/10 of it.
	readTimeout time.Duration

	mu    sync.RWMutex
	conns map[int64]*websocket.Conn
	wmu   map[int64]*sync.Mutex
}

func NewHub(log *zap.SugaredLogger, allowedOrigins []string) *Hub {
	return &Hub{
		upgrader:    websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		log:         log,
		readTimeout: defaultReadTimeout,
		conns:       make(map[int64]*websocket.Conn),
		wmu:         make(map[int64]*sync.Mutex),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the request for an already authenticated user. A newer
// connection replaces the old one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if old, ok := h.conns[userID]; ok {
		_ = old.Close()
	}
	h.conns[userID] = conn
	if _, ok := h.wmu[userID]; !ok {
		h.wmu[userID] = &sync.Mutex{}
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.pingLoop(userID, conn, done)
	go h.readLoop(userID, conn, done)
}

// pingLoop keeps the peer's pongs flowing so an idle subscriber stays inside
// the read deadline. It stops when the read loop exits or the socket is replaced.
func (h *Hub) pingLoop(userID int64, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.readTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := h.writeConn(userID, conn, func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.PingMessage, nil)
			})
			if err != nil {
				h.log.Debugf("ws ping to user %d stopped: %v", userID, err)
				return
			}
		}
	}
}

func (h *Hub) readLoop(userID int64, conn *websocket.Conn, done chan<- struct{}) {
	defer func() {
		close(done)
		conn.Close()
		h.mu.Lock()
		if h.conns[userID] == conn {
			delete(h.conns, userID)
			delete(h.wmu, userID)
		}
		h.mu.Unlock()
	}()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(msg)), "ping") {
			h.safeWrite(userID, func(c *websocket.Conn) error {
				return c.WriteMessage(websocket.TextMessage, []byte("pong"))
			})
		}
	}
}

func (h *Hub) safeWrite(userID int64, writer func(*websocket.Conn) error) error {
	return h.writeConn(userID, nil, writer)
}

// writeConn serialises a write to the user's socket. A non-nil want restricts
// the write to that connection; ErrSkipped is returned once it has been replaced.
func (h *Hub) writeConn(userID int64, want *websocket.Conn, writer func(*websocket.Conn) error) error {
	h.mu.RLock()
	conn := h.conns[userID]
	mu := h.wmu[userID]
	h.mu.RUnlock()
	if conn == nil || mu == nil || (want != nil && conn != want) {
		return ErrSkipped
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return writer(conn)
}

// Connected reports whether the user has an open socket.
func (h *Hub) Connected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

func (h *Hub) Name() string { return "websocket" }

// Deliver writes the event to the user's socket, or returns ErrSkipped.
func (h *Hub) Deliver(_ context.Context, to Recipient, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return h.safeWrite(to.UserID, func(conn *websocket.Conn) error {
		return conn.WriteMessage(websocket.TextMessage, data)
	})
}

// Close drops every connection. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(h.conns, id)
		delete(h.wmu, id)
	}
}
