package events

import (
	"log"
	"sync"
	"time"
)

// JobEvent is pushed to clients following a validation job.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	jobID string
	ch    chan JobEvent
}

// Hub fans job events out to the SSE subscribers of each job. A single
// goroutine owns the client map; handlers talk to it over channels.
type Hub struct {
	clients    map[string]map[chan JobEvent]bool
	clientsMu  sync.RWMutex
	register   chan client
	unregister chan client
	broadcast  chan JobEvent
}

func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]map[chan JobEvent]bool),
		register:   make(chan client, 10),
		unregister: make(chan client, 10),
		broadcast:  make(chan JobEvent, 100),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			if h.clients[c.jobID] == nil {
				h.clients[c.jobID] = make(map[chan JobEvent]bool)
			}
			h.clients[c.jobID][c.ch] = true
			h.clientsMu.Unlock()

		case c := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[c.jobID]; exists {
				if clients[c.ch] {
					delete(clients, c.ch)
					close(c.ch)
				}
				if len(clients) == 0 {
					delete(h.clients, c.jobID)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for ch := range h.clients[event.JobID] {
				select {
				case ch <- event:
				default:
					// Slow client, skip this event rather than block the hub.
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Subscribe registers a listener for one job. The returned channel is
// closed by Unsubscribe.
func (h *Hub) Subscribe(jobID string) chan JobEvent {
	ch := make(chan JobEvent, 10)
	h.register <- client{jobID: jobID, ch: ch}
	return ch
}

func (h *Hub) Unsubscribe(jobID string, ch chan JobEvent) {
	h.unregister <- client{jobID: jobID, ch: ch}
}

// Broadcast delivers an event to every subscriber of the job. Never blocks.
func (h *Hub) Broadcast(event JobEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[sse] broadcast channel full, dropping event for job %s", event.JobID)
	}
}
