// Package ws implements the realtime push channel: a hub fanning broadcast
// frames out to every connected websocket client. Clients never send
// application data upstream; the socket is push-only.
package ws

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Hub owns the set of connected clients. Handlers publish by sending a
// marshalled frame to Broadcast.
type Hub struct {
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	clients    map[*Client]bool

	stop    chan struct{}
	stopped chan struct{}
	count   atomic.Int32

	// OnClientCount, when set before Run, is invoked from the hub goroutine
	// whenever the client count changes.
	OnClientCount func(n int)

	log zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.stop:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.log.Debug().Int("clients", len(h.clients)).Msg("ws client connected")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
				h.log.Debug().Int("clients", len(h.clients)).Msg("ws client disconnected")
			}
		case msg := <-h.Broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer: drop it rather than stall the hub.
					delete(h.clients, c)
					close(c.send)
					h.setCount(len(h.clients))
				}
			}
		}
	}
}

// Stop shuts the hub down and disconnects every client. Safe to call once.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.stopped
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

func (h *Hub) setCount(n int) {
	h.count.Store(int32(n))
	if h.OnClientCount != nil {
		h.OnClientCount(n)
	}
}

// detach is how client pumps leave the hub without deadlocking against a
// stopped Run loop.
func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}
