// Package server coordinates connection registration, presence, typing relay,
// and message fan-out for the chat room via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Tyrowin/relaychat/internal/store"
)

// hubEvent is a typed request from a connection, processed in queue order.
type hubEvent interface {
	origin() *Client
}

type joined struct {
	client *Client
	name   string
}

type departed struct {
	client *Client
}

type chatSent struct {
	client *Client
	name   string
	body   string
}

type typingChanged struct {
	client *Client
	name   string
	typing bool
}

func (e joined) origin() *Client        { return e.client }
func (e departed) origin() *Client      { return e.client }
func (e chatSent) origin() *Client      { return e.client }
func (e typingChanged) origin() *Client { return e.client }

// Hub owns the registry, the typing tracker, and the set of live clients.
// Every mutation happens on the goroutine running Run, one event at a time.
// The mutex only lets other goroutines read snapshots.
type Hub struct {
	cfg        Config
	registry   *Registry
	typing     *TypingTracker
	relay      *Relay
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	events     chan hubEvent
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	now        func() time.Time
}

// NewHub creates a hub persisting through messages. The returned Hub is ready
// to Run.
func NewHub(cfg *Config, messages MessageStore) *Hub {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := cfg.sanitize()

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:        c,
		registry:   NewRegistry(),
		typing:     NewTypingTracker(),
		relay:      NewRelay(messages, c.PersistQueueSize, c.PersistTimeout),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan hubEvent, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Relay returns the hub's message relay for history queries.
func (h *Hub) Relay() *Relay {
	return h.relay
}

// Register hands a freshly upgraded client to the hub. It reports false once
// the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) submit(ev hubEvent) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Roster returns the online names in join order.
func (h *Hub) Roster() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.registry.Roster()
}

// ClientCount returns the number of live connections, joined or not.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	go h.relay.Run()
	defer h.relay.Close()

	sweep, stop := h.typingSweep()
	defer stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			if h.isLive(client) {
				log.Printf("Client %s (%s) disconnected", client.id, client.addr)
				h.disconnect(client)
			}

		case ev := <-h.events:
			h.dispatch(ev)

		case msg := <-h.relay.Stored():
			h.broadcastMessage(msg)

		case now := <-sweep:
			h.expireTyping(now)
		}
	}
}

// typingSweep returns a ticker channel for typing expiry, or nil when expiry
// is disabled.
func (h *Hub) typingSweep() (<-chan time.Time, func()) {
	if h.cfg.TypingTimeout <= 0 {
		return nil, func() {}
	}

	interval := h.cfg.TypingTimeout / 2
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

func (h *Hub) isLive(client *Client) bool {
	return client != nil && h.clients[client.id] == client
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.id = h.registry.Register()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) dispatch(ev hubEvent) {
	if !h.isLive(ev.origin()) {
		return
	}

	switch e := ev.(type) {
	case joined:
		h.handleJoin(e)
	case departed:
		h.handleLeave(e)
	case chatSent:
		h.handleChat(e)
	case typingChanged:
		h.handleTyping(e)
	}
}

func (h *Hub) handleJoin(e joined) {
	h.mutex.Lock()
	change, err := h.registry.Join(e.client.id, e.name)
	h.mutex.Unlock()
	if err != nil {
		log.Printf("Ignoring join %q from %s: %v", e.name, e.client.addr, err)
		return
	}
	log.Printf("%q joined from %s. Online users: %v", change.Name, e.client.addr, change.Roster)

	deliveries, err := presenceOnJoin(change, e.client.id)
	if err != nil {
		log.Printf("Error encoding presence for %q: %v", change.Name, err)
		return
	}
	h.fanout(deliveries...)
}

func (h *Hub) handleLeave(e departed) {
	h.clearTyping(e.client)

	h.mutex.Lock()
	change, ok := h.registry.Leave(e.client.id)
	h.mutex.Unlock()
	if !ok {
		log.Printf("Ignoring leave from %s: not joined", e.client.addr)
		return
	}
	log.Printf("%q left from %s. Online users: %v", change.Name, e.client.addr, change.Roster)

	h.announceLeave(change, e.client.id)
}

func (h *Hub) handleChat(e chatSent) {
	author := e.name
	if author == "" {
		author, _ = h.registry.Name(e.client.id)
	}

	msg, ok := newMessage(author, e.body, h.now())
	if !ok {
		return
	}
	h.clearTyping(e.client)
	h.persist(msg)
}

// persist queues msg on the journal. While the journal is full it keeps
// broadcasting messages the journal has finished with, so the two never wait
// on each other.
func (h *Hub) persist(msg store.Message) {
	for {
		select {
		case h.relay.queue <- msg:
			return
		case stored := <-h.relay.Stored():
			h.broadcastMessage(stored)
		case <-h.ctx.Done():
			log.Printf("Dropping message from %q: hub is shutting down", msg.Name)
			return
		}
	}
}

// broadcastMessage fans a stored message out to every client, the author
// included.
func (h *Hub) broadcastMessage(msg store.Message) {
	frame, err := encodeEvent(EventReceiveMessage, newMessagePayload(msg))
	if err != nil {
		log.Printf("Error encoding message from %q: %v", msg.Name, err)
		return
	}
	h.fanout(delivery{payload: frame})
}

func (h *Hub) handleTyping(e typingChanged) {
	name := e.name
	if name == "" {
		name, _ = h.registry.Name(e.client.id)
	}
	if name == "" {
		log.Printf("Dropping typing signal from %s: no name", e.client.addr)
		return
	}

	if e.typing {
		h.typing.Start(e.client.id, name, h.now())
	} else {
		h.typing.Stop(e.client.id)
	}

	h.relayTyping(name, e.typing, e.client.id)
}

// clearTyping broadcasts typing:false for a connection with an open signal.
func (h *Hub) clearTyping(client *Client) {
	if name, ok := h.typing.Stop(client.id); ok {
		h.relayTyping(name, false, client.id)
	}
}

func (h *Hub) expireTyping(now time.Time) {
	for _, entry := range h.typing.Expire(now, h.cfg.TypingTimeout) {
		log.Printf("Typing indicator for %q expired", entry.name)
		h.relayTyping(entry.name, false, entry.connID)
	}
}

func (h *Hub) relayTyping(name string, typing bool, senderID string) {
	d, err := typingFrame(name, typing, senderID)
	if err != nil {
		log.Printf("Error encoding typing signal for %q: %v", name, err)
		return
	}
	h.fanout(d)
}

func (h *Hub) announceLeave(change RosterChange, leaverID string) {
	deliveries, err := presenceOnLeave(change, leaverID)
	if err != nil {
		log.Printf("Error encoding presence for %q: %v", change.Name, err)
		return
	}
	h.fanout(deliveries...)
}

// disconnect removes a live client, closes its send channel, and announces
// the departure. Closing the channel makes the write pump close the socket.
func (h *Hub) disconnect(client *Client) {
	h.mutex.Lock()
	delete(h.clients, client.id)
	change, wasJoined := h.registry.Remove(client.id)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(client.send)
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.id, client.addr, clientCount)

	h.clearTyping(client)
	if wasJoined {
		h.announceLeave(change, client.id)
	}
}

// fanout queues each delivery on every live client's send buffer. Clients
// whose buffer is full are disconnected afterwards.
func (h *Hub) fanout(deliveries ...delivery) {
	var slow []*Client
	skipped := make(map[string]bool)

	for _, d := range deliveries {
		for id, client := range h.clients {
			if id == d.except || skipped[id] {
				continue
			}
			select {
			case client.send <- d.payload:
			default:
				skipped[id] = true
				slow = append(slow, client)
			}
		}
	}

	for _, client := range slow {
		if h.isLive(client) {
			log.Printf("Client %s from %s removed due to full send buffer", client.id, client.addr)
			h.disconnect(client)
		}
	}
}

// shutdownClients closes every connection without presence broadcasts.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		h.registry.Remove(id)
		delete(h.clients, id)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the event loop, flushes queued message writes, and waits for
// all client goroutines to finish or ctx to expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
	case <-ctx.Done():
		log.Println("Hub shutdown timeout reached before event loop stopped")
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-ctx.Done():
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return ctx.Err()
	}
}
