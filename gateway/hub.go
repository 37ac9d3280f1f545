package gateway

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/euphoria-gg/betledger/events"
)

// Client is one connected websocket consumer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// filters is written by the client's read goroutine (control frames) and
	// read by the hub's broadcast goroutine, so it needs its own lock.
	filterMu sync.Mutex
	filters  map[events.EventType]bool // empty → receive everything
}

// Hub fans ledger events out to connected websocket clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan events.Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub with no clients.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan events.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Attach subscribes the hub to every event on the emitter. The handler only
// enqueues, so the ledger call that emitted the event never blocks on a slow
// websocket client.
func (h *Hub) Attach(emitter *events.Emitter) {
	emitter.SubscribeAll(func(ev events.Event) {
		select {
		case h.broadcast <- ev:
		default:
			log.Printf("[gateway] broadcast queue full, dropping %s", ev.Type)
		}
	})
}

// Run processes registration and broadcast until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[gateway] client registered, total %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[gateway] client unregistered, total %d", total)

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[gateway] marshal event: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(ev.Type) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Slow client: drop it rather than stall the hub.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (c *Client) wants(typ events.EventType) bool {
	c.filterMu.Lock()
	defer c.filterMu.Unlock()
	if len(c.filters) == 0 {
		return true
	}
	return c.filters[typ]
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[gateway] websocket error: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// handleMessage processes client-side subscription control frames.
func (c *Client) handleMessage(message []byte) {
	var msg struct {
		Type       string   `json:"type"`
		EventTypes []string `json:"event_types"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[gateway] bad client message: %v", err)
		return
	}
	switch msg.Type {
	case "subscribe":
		filters := make(map[events.EventType]bool, len(msg.EventTypes))
		for _, t := range msg.EventTypes {
			filters[events.EventType(t)] = true
		}
		c.filterMu.Lock()
		c.filters = filters
		c.filterMu.Unlock()
	case "unsubscribe":
		c.filterMu.Lock()
		c.filters = nil
		c.filterMu.Unlock()
	}
}
