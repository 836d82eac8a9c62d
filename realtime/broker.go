// Package realtime pushes ingestion run events to browsers over Server-Sent Events
// and WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
)

const clientBuffer = 10

// Broker fans published events out to connected SSE clients
type Broker struct {
	clients    map[chan []byte]struct{}
	register   chan chan []byte
	unregister chan chan []byte
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
}

// NewBroker creates a new SSE broker
func NewBroker() *Broker {
	return &Broker{
		clients:    make(map[chan []byte]struct{}),
		register:   make(chan chan []byte),
		unregister: make(chan chan []byte),
		broadcast:  make(chan []byte, 100),
		done:       make(chan struct{}),
	}
}

// Run dispatches events until ctx is cancelled, then disconnects every client
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(b.done)
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client)
			}
			b.mu.Unlock()
			return

		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = struct{}{}
			n := len(b.clients)
			b.mu.Unlock()
			log.Printf("📡 SSE client connected. Total: %d", n)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client)
			}
			n := len(b.clients)
			b.mu.Unlock()
			log.Printf("📡 SSE client disconnected. Total: %d", n)

		case msg := <-b.broadcast:
			b.mu.RLock()
			for client := range b.clients {
				select {
				case client <- msg:
				default:
					// slow client, drop
				}
			}
			b.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP streams events to one client until it disconnects
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := make(chan []byte, clientBuffer)
	select {
	case b.register <- client:
	case <-b.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			b.leave(client)
			return
		case msg, open := <-client:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// leave unregisters a client unless the broker has already shut down
func (b *Broker) leave(client chan []byte) {
	select {
	case b.unregister <- client:
	case <-b.done:
	}
}

// Publish sends an event to all connected clients. It never blocks; events are dropped
// when the broadcast buffer is full.
func (b *Broker) Publish(event string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		log.Printf("⚠️ Failed to marshal %s event: %v", event, err)
		return
	}

	select {
	case b.broadcast <- data:
	default:
		log.Printf("⚠️ Broadcast buffer full, dropping %s event", event)
	}
}
