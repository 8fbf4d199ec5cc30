package progress

import (
	"authenta/internal/logger"
	"authenta/internal/model"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	broadcastBuffer = 64
	writeTimeout    = 5 * time.Second
)

// HubService fans status events out to every connected websocket viewer.
// A new viewer first gets the latest event of every media record, then only
// events newer than that replay.
type HubService struct {
	clients    map[*websocket.Conn]uint64 // viewer -> last sequence it has seen
	broadcast  chan message
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger

	lastMu sync.RWMutex
	last   map[string]sequenced
	seq    uint64
}

type sequenced struct {
	seq   uint64
	event model.StatusEvent
}

type message struct {
	seq  uint64
	data []byte
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]uint64),
		broadcast:  make(chan message, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		last:       make(map[string]sequenced),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every remaining connection.
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
			return

		case client := <-h.register:
			events, seq := h.snapshot()
			if err := h.replay(client, events); err != nil {
				h.logger.Error("Failed to replay status to viewer: %v", err)
				client.Close()
				continue
			}
			h.mutex.Lock()
			h.clients[client] = seq
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for client, seen := range h.clients {
				if msg.seq <= seen {
					continue
				}
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, msg.data); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, client)
					client.Close()
					continue
				}
				h.clients[client] = msg.seq
			}
			h.mutex.Unlock()
		}
	}
}

// replay writes events to a viewer that is not yet receiving broadcasts.
func (h *HubService) replay(client *websocket.Conn, events []model.StatusEvent) error {
	for _, event := range events {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteJSON(event); err != nil {
			return err
		}
	}
	return nil
}

// Register replays the latest status of every known record to the viewer and
// adds it to the broadcast set. After Run has returned the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues event for every viewer. It never blocks the poll loop: when
// the queue is full the event is dropped and a warning logged. The latest
// event per record is kept either way for viewers that connect later.
func (h *HubService) Publish(event model.StatusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode status event: %v", err)
		return
	}

	h.lastMu.Lock()
	defer h.lastMu.Unlock()

	h.seq++
	h.last[event.MID] = sequenced{seq: h.seq, event: event}

	select {
	case h.broadcast <- message{seq: h.seq, data: data}:
	default:
		h.logger.Warning("Progress queue full, dropping event for %s", event.MID)
	}
}

// Snapshot returns the most recent event of every media record seen so far.
func (h *HubService) Snapshot() []model.StatusEvent {
	events, _ := h.snapshot()
	return events
}

// snapshot also returns the sequence of the newest event it covers.
func (h *HubService) snapshot() ([]model.StatusEvent, uint64) {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()

	events := make([]model.StatusEvent, 0, len(h.last))
	for _, entry := range h.last {
		events = append(events, entry.event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time.Equal(events[j].Time) {
			return events[i].MID < events[j].MID
		}
		return events[i].Time.Before(events[j].Time)
	})
	return events, h.seq
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
