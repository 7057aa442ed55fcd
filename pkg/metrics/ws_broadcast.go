package metrics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSBroadcaster fans out each flushed Snapshot to every connected
// WebSocket client, in the multi-client style of
// _examples/helixml-helix/api/pkg/desktop/session_registry.go (there used
// for cursor presence; here for metrics). A slow client never blocks
// Flush: each client has a small buffered outbox, and a client whose
// outbox fills is dropped rather than allowed to back-pressure the rest of
// the system.
type WSBroadcaster struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	logger  *slog.Logger
}

type wsClient struct {
	conn *websocket.Conn
	out  chan Snapshot
}

const clientOutboxSize = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWSBroadcaster creates an empty broadcaster.
func NewWSBroadcaster(logger *slog.Logger) *WSBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSBroadcaster{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams one JSON
// Snapshot per subsequent Broadcast call until the client disconnects or is
// dropped as a slow client.
func (b *WSBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("metrics ws: upgrade failed", "err", err)
		return
	}

	client := &wsClient{conn: conn, out: make(chan Snapshot, clientOutboxSize)}

	b.mu.Lock()
	b.clients[client] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, client)
		b.mu.Unlock()
		conn.Close()
	}()

	for snap := range client.out {
		data, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Broadcast pushes snap to every connected client's outbox, dropping any
// client whose outbox is already full rather than blocking.
func (b *WSBroadcaster) Broadcast(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		select {
		case c.out <- snap:
		default:
			b.logger.Debug("metrics ws: dropping slow client")
			delete(b.clients, c)
			close(c.out)
		}
	}
}

var _ Broadcaster = (*WSBroadcaster)(nil)
