//
//
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/responder"
)

// Event types published by the hub.
const (
	EventReady     = "ready"
	EventMessage   = "message"
	EventReply     = "reply"
	EventDrop      = "drop"
	EventConnected = "connected"
	EventHeartbeat = "heartbeat"
)

// Event represents a telemetry event with SSE formatting.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Config sizes the replay buffer and heartbeat cadence.
type Config struct {
	BufferSize        int
	HeartbeatInterval time.Duration
}

// client represents an SSE client connection.
type client struct {
	id     string
	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	mu     sync.Mutex
}

// Hub manages SSE telemetry distribution. It implements responder.Recorder.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  int64
	seq     int64
	buffer  *EventBuffer

	config   Config
	snapshot func() map[string]interface{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ responder.Recorder = (*Hub)(nil)

// NewHub creates a hub and starts its heartbeat. snapshot, if non-nil,
// supplies the payload of the ready event sent to each new client.
func NewHub(cfg Config, snapshot func() map[string]interface{}) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}

	h := &Hub{
		clients:  make(map[string]*client),
		buffer:   NewEventBuffer(cfg.BufferSize),
		config:   cfg,
		snapshot: snapshot,
		done:     make(chan struct{}),
	}

	h.wg.Add(1)
	go h.heartbeat()
	return h
}

// Subscribe streams events to w until the request context ends or the hub
// stops. A Last-Event-ID header replays buffered events after that ID.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	clientCtx, cancel := context.WithCancel(ctx)
	c := &client{
		id:     fmt.Sprintf("client_%d", atomic.AddInt64(&h.seq, 1)),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
		events: make(chan Event, 64),
	}

	select {
	case <-h.done:
		cancel()
		return fmt.Errorf("telemetry hub stopped")
	default:
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	defer h.unregister(c.id)

	if err := c.send(h.readyEvent()); err != nil {
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	// Events published after registration may be both replayed and queued.
	replayed := int64(0)
	if lastEventID > 0 {
		for _, ev := range h.buffer.After(lastEventID) {
			if err := c.send(ev); err != nil {
				return fmt.Errorf("failed to replay events: %w", err)
			}
			replayed = ev.ID
		}
	}

	for {
		select {
		case <-clientCtx.Done():
			return nil
		case <-h.done:
			return nil
		case ev := <-c.events:
			if ev.ID != 0 && ev.ID <= replayed {
				continue
			}
			if err := c.send(ev); err != nil {
				return nil
			}
		}
	}
}

// Publish assigns an ID, buffers the event and fans it out to clients.
// Slow clients miss events rather than block the publisher.
func (h *Hub) Publish(event Event) {
	select {
	case <-h.done:
		return
	default:
	}

	if event.Type != EventHeartbeat {
		event.ID = atomic.AddInt64(&h.nextID, 1)
		h.buffer.Add(event)
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case <-c.ctx.Done():
		case c.events <- event:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Buffer exposes the replay buffer.
func (h *Hub) Buffer() *EventBuffer {
	return h.buffer
}

// MessageReceived publishes inbound text messages.
func (h *Hub) MessageReceived(ev radiolink.MessageEvent) {
	if ev.Category != radiolink.CategoryText {
		return
	}
	h.Publish(Event{Type: EventMessage, Data: map[string]interface{}{
		"from": string(ev.From),
		"to":   string(ev.To),
		"text": ev.Text(),
		"ts":   ev.ReceivedAt.UTC().Format(time.RFC3339),
	}})
}

// ReplySent publishes a range reply.
func (h *Hub) ReplySent(to radiolink.NodeID, text string, meters int) {
	h.Publish(Event{Type: EventReply, Data: map[string]interface{}{
		"to":     string(to),
		"text":   text,
		"meters": meters,
	}})
}

// ReplyDropped publishes a dropped command.
func (h *Hub) ReplyDropped(from radiolink.NodeID, reason string, err error) {
	data := map[string]interface{}{
		"from":   string(from),
		"reason": reason,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	h.Publish(Event{Type: EventDrop, Data: data})
}

// LinkEstablished publishes a connection event.
func (h *Hub) LinkEstablished() {
	h.Publish(Event{Type: EventConnected, Data: map[string]interface{}{
		"ts": time.Now().UTC().Format(time.RFC3339),
	}})
}

// Stop disconnects all clients and stops the heartbeat. It is safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, c := range h.clients {
			c.cancel()
		}
		h.mu.Unlock()

		h.wg.Wait()
	})
}

func (h *Hub) readyEvent() Event {
	data := map[string]interface{}{}
	if h.snapshot != nil {
		data = h.snapshot()
	}
	data["lastEventId"] = atomic.LoadInt64(&h.nextID)
	return Event{Type: EventReady, Data: data}
}

func (h *Hub) heartbeat() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			h.Publish(Event{Type: EventHeartbeat, Data: map[string]interface{}{
				"ts": time.Now().UTC().Format(time.RFC3339),
			}})
		case <-h.done:
			return
		}
	}
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		c.cancel()
		delete(h.clients, id)
	}
}

// send writes a single event in SSE framing and flushes it.
func (c *client) send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(c.writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(c.writer, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(c.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	if flusher, ok := c.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
