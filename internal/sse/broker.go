// Package sse implements a Server-Sent Events broker that tells preview
// pages when documents or the slug registry change.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeDocumentChanged = "document.changed"
	TypeRegistryUpdated = "registry.updated"
)

// DefaultKeepAlive is how often an idle stream gets a comment line.
const DefaultKeepAlive = 25 * time.Second

// Event represents an SSE event to broadcast. Path, when set, limits
// delivery to clients watching that document (or watching everything).
type Event struct {
	Type string
	Path string
	Data any
}

// DocumentChange is the payload of a document.changed event.
type DocumentChange struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	BuildID string `json:"buildId,omitempty"`
}

type registryUpdate struct {
	BuildID string `json:"buildId,omitempty"`
}

// Subscription is one connected client. Messages arrive on C, already
// framed as SSE; C is closed on Unsubscribe or Close.
type Subscription struct {
	C    chan []byte
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the clients, the event counter and the
// registry throttle timestamp; public methods talk to it over channels.
type Broker struct {
	registryMin time.Duration
	keepAlive   time.Duration

	subscribeCh   chan *Subscription
	unsubscribeCh chan *Subscription
	publishCh     chan Event
	changeCh      chan DocumentChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sets the keepalive interval; zero or less disables it.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) { b.keepAlive = d }
}

// NewBroker creates a new SSE broker with the given registry.updated
// throttle interval.
func NewBroker(registryThrottle time.Duration, opts ...BrokerOption) *Broker {
	if registryThrottle <= 0 {
		registryThrottle = 2 * time.Second
	}

	b := &Broker{
		registryMin:   registryThrottle,
		keepAlive:     DefaultKeepAlive,
		subscribeCh:   make(chan *Subscription),
		unsubscribeCh: make(chan *Subscription),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan DocumentChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

// frame renders one SSE message.
func frame(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

func (s *Subscription) wants(event Event) bool {
	return s.path == "" || event.Path == "" || event.Path == s.path
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[*Subscription]struct{})
	var (
		lastRegistry time.Time
		nextID       uint64
	)

	broadcast := func(event Event) {
		nextID++
		raw, err := frame(nextID, event)
		if err != nil {
			return
		}
		for sub := range clients {
			if !sub.wants(event) {
				continue
			}
			select {
			case sub.C <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for sub := range clients {
				close(sub.C)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub] = struct{}{}

		case sub := <-b.unsubscribeCh:
			if _, ok := clients[sub]; ok {
				delete(clients, sub)
				close(sub.C)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case change := <-b.changeCh:
			broadcast(Event{Type: TypeDocumentChanged, Path: change.Path, Data: change})

			now := time.Now()
			if now.Sub(lastRegistry) >= b.registryMin {
				lastRegistry = now
				broadcast(Event{Type: TypeRegistryUpdated, Data: registryUpdate{BuildID: change.BuildID}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client that receives every event.
func (b *Broker) Subscribe() *Subscription {
	return b.SubscribePath("")
}

// SubscribePath adds a client that only receives document events for path
// plus the events that concern every document.
func (b *Broker) SubscribePath(path string) *Subscription {
	sub := &Subscription{C: make(chan []byte, 64), path: path}
	if b.closed.Load() {
		close(sub.C)
		return sub
	}

	select {
	case b.subscribeCh <- sub:
	case <-b.stopped:
		close(sub.C)
	}

	return sub
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- sub:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDocumentChange publishes a document.changed event and a throttled
// registry.updated event.
func (b *Broker) PublishDocumentChange(change DocumentChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// path query parameter narrows document events to one document.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := b.SubscribePath(r.URL.Query().Get("path"))
	defer b.Unsubscribe(sub)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
