package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"recicleai/internal/dto"
	"recicleai/internal/logger"
)

const (
	broadcastBuffer = 32
	writeWait       = 2 * time.Second
)

// HubService fans dashboard events out to every connected client.
// Broadcast never blocks the caller; messages are dropped when the hub is
// behind.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	dropped    uint64
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.logger.Info("Websocket hub stopped")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds a client. It returns false when the hub has stopped.
func (h *HubService) Register(client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a raw message for all clients. It returns false when the
// message was dropped.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		atomic.AddUint64(&h.dropped, 1)
		return false
	}
}

// BroadcastEvent encodes the event as JSON and broadcasts it. Nothing is
// encoded when there are no clients.
func (h *HubService) BroadcastEvent(event dto.Event) bool {
	if h.GetClientCount() == 0 {
		return false
	}
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Error encoding %s event: %v", event.Type, err)
		return false
	}
	return h.Broadcast(message)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded.
func (h *HubService) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}
