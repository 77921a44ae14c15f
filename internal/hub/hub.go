// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hub broadcasts simulation events to Server-Sent Events clients.
//
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/db47h/fupsim"
	"github.com/google/uuid"
)

// Event types.
//
const (
	TypeFrame     = "frame"
	TypeVariables = "variables"
	TypeReload    = "reload"
)

// Event is a message sent to all clients.
//
type Event struct {
	Type string
	Data interface{}
}

type client struct {
	id     string
	events chan []byte
}

// Hub manages SSE client connections.
//
type Hub struct {
	log        *log.Logger
	keepAlive  time.Duration
	mu         sync.RWMutex
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	quit       chan struct{}
}

// New returns a new Hub. If l is nil, logging is disabled.
//
func New(l *log.Logger) *Hub {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	return &Hub{
		log:        l,
		keepAlive:  30 * time.Second,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		quit:       make(chan struct{}),
	}
}

// Run runs the hub event loop until ctx is done.
//
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.events)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Printf("SSE client %s connected (total: %d)", c.id, n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Printf("SSE client %s disconnected (total: %d)", c.id, n)

		case e := <-h.broadcast:
			data, err := json.Marshal(e.Data)
			if err != nil {
				h.log.Printf("marshal %s event: %v", e.Type, err)
				continue
			}
			msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, data))
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.events <- msg:
				default:
					// slow client
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for all connected clients. It never blocks: the
// event is dropped if the queue is full.
//
func (h *Hub) Broadcast(typ string, data interface{}) {
	select {
	case h.broadcast <- Event{typ, data}:
	default:
		h.log.Printf("broadcast queue full, dropping %s event", typ)
	}
}

// Observe is a fupsim observer broadcasting frames. It drops frames when no
// client is connected.
//
func (h *Hub) Observe(f *fupsim.Frame) {
	if h.ClientCount() > 0 {
		h.Broadcast(TypeFrame, f)
	}
}

// ClientCount returns the number of connected clients.
//
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP serves an SSE stream.
//
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := &client{id: uuid.NewString(), events: make(chan []byte, 64)}
	select {
	case h.register <- c:
	case <-h.quit:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.quit:
		}
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	t := time.NewTicker(h.keepAlive)
	defer t.Stop()
	for {
		select {
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		case <-t.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
