package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/t7a/pitledger/ledger"
)

const writeWait = 5 * time.Second

// Hub maintains the set of active websocket clients and broadcasts
// appended blocks to them.  Hub is a ledger.PeerBroadcaster.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	// closed when Run returns
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for conn := range h.clients {
			conn.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Debugf("websocket write: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Announce queues b for every client as one JSON BlockView.  It never
// blocks; when the queue is full the block is not sent.
func (h *Hub) Announce(b ledger.Block) (err error) {
	msg, err := json.Marshal(b.View())
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		err = errors.Errorf("websocket queue full, block %.12s not sent", b.Hash())
	}
	return
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWs upgrades the connection to a websocket and registers it with
// the Hub.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	// Keep the connection open until the client goes away
	for {
		if _, _, err := conn.NextReader(); err != nil {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
			return
		}
	}
}
