package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miradorstack/televator/internal/models"
)

// SnapshotSource publishes tracker snapshots.
type SnapshotSource interface {
	Snapshot() models.Snapshot
	Subscribe(buffer int) (<-chan models.Snapshot, func())
}

// SnapshotFeed streams snapshots to websocket clients as JSON, starting with the
// current state. Clients only read; anything they send is discarded.
type SnapshotFeed struct {
	logger     *slog.Logger
	source     SnapshotSource
	upgrader   websocket.Upgrader
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	tail       int
}

// NewSnapshotFeed builds a feed over source.
func NewSnapshotFeed(logger *slog.Logger, source SnapshotSource) *SnapshotFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotFeed{
		logger: logger,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		writeWait:  10 * time.Second,
		pongWait:   60 * time.Second,
		pingPeriod: 54 * time.Second,
		tail:       HistoryTail,
	}
}

func (f *SnapshotFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	updates, cancel := f.source.Subscribe(16)
	defer cancel()

	closed := make(chan struct{})
	go f.readPump(conn, closed)

	ticker := time.NewTicker(f.pingPeriod)
	defer ticker.Stop()

	if err := f.write(conn, f.source.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(f.writeWait))
				return
			}
			if err := f.write(conn, snap); err != nil {
				f.logger.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (f *SnapshotFeed) write(conn *websocket.Conn, snap models.Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(f.writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(SnapshotView(snap, f.tail))
}

func (f *SnapshotFeed) readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(f.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
