// Package sim provides an in-process Radio Link backed by an in-memory node
// directory. It is used by tests and by the "sim" port setting.
package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
)

// Config seeds a simulated link.
type Config struct {
	LocalID radiolink.NodeID     `yaml:"localId"`
	Nodes   []radiolink.NodeInfo `yaml:"nodes"`
}

// Sent is one outbound message recorded by the simulator.
type Sent struct {
	To   radiolink.NodeID `json:"to"`
	Text string           `json:"text"`
	At   time.Time        `json:"at"`
}

// Link implements radiolink.Link in memory.
type Link struct {
	mu          sync.RWMutex
	localID     radiolink.NodeID
	nodes       map[radiolink.NodeID]radiolink.NodeInfo
	subscribers map[int]radiolink.Handlers
	nextSub     int
	sent        []Sent
	connected   bool
	closed      bool

	// SendErr, when set, is returned by SendText instead of recording the message.
	SendErr error
}

// New creates a simulated link. The local node is added to the directory if
// the seed does not already contain it.
func New(cfg Config) *Link {
	l := &Link{
		localID:     cfg.LocalID,
		nodes:       make(map[radiolink.NodeID]radiolink.NodeInfo),
		subscribers: make(map[int]radiolink.Handlers),
	}
	for _, n := range cfg.Nodes {
		l.nodes[n.ID] = copyNode(n)
	}
	if _, ok := l.nodes[cfg.LocalID]; !ok && cfg.LocalID != "" {
		l.nodes[cfg.LocalID] = radiolink.NodeInfo{ID: cfg.LocalID}
	}
	return l
}

// Register installs the simulator as the driver for radiolink.KindSim. Each
// dial opens a fresh link seeded from cfg.
func Register(cfg Config) {
	radiolink.Register(radiolink.KindSim, func(ctx context.Context, target radiolink.Target) (radiolink.Link, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if cfg.LocalID == "" {
			return nil, fmt.Errorf("simulator requires a local node id")
		}
		return New(cfg), nil
	})
}

// LocalID returns the simulated device identity.
func (l *Link) LocalID() radiolink.NodeID {
	return l.localID
}

// Node returns a copy of the directory entry for id.
func (l *Link) Node(id radiolink.NodeID) (radiolink.NodeInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.nodes[id]
	if !ok {
		return radiolink.NodeInfo{}, false
	}
	return copyNode(n), true
}

// Nodes returns the directory sorted by id.
func (l *Link) Nodes() []radiolink.NodeInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]radiolink.NodeInfo, 0, len(l.nodes))
	for _, n := range l.nodes {
		out = append(out, copyNode(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe registers handlers. If the link is already open, OnConnected is
// not replayed; call Reconnect to raise it again.
func (l *Link) Subscribe(h radiolink.Handlers) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subscribers[id] = h
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subscribers, id)
			l.mu.Unlock()
		})
	}
}

// Open marks the link connected and notifies subscribers.
func (l *Link) Open() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return radiolink.ErrClosed
	}
	l.connected = true
	l.mu.Unlock()

	l.notifyConnected()
	return nil
}

// Reconnect simulates the device dropping and re-establishing the link.
func (l *Link) Reconnect() error {
	return l.Open()
}

// Connected reports whether Open has been called.
func (l *Link) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Inject delivers an inbound event to every subscriber on the caller's goroutine.
func (l *Link) Inject(ev radiolink.MessageEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return radiolink.ErrClosed
	}
	if n, ok := l.nodes[ev.From]; ok {
		n.LastHeard = ev.ReceivedAt
		l.nodes[ev.From] = n
	}
	handlers := l.snapshotLocked()
	l.mu.Unlock()

	for _, h := range handlers {
		if h.OnMessage != nil {
			h.OnMessage(ev)
		}
	}
	return nil
}

// InjectText is a shorthand for injecting a text message addressed to the local node.
func (l *Link) InjectText(from radiolink.NodeID, text string) error {
	return l.Inject(radiolink.MessageEvent{
		From:     from,
		To:       l.localID,
		Category: radiolink.CategoryText,
		Payload:  []byte(text),
	})
}

// UpsertNode adds or replaces a directory entry.
func (l *Link) UpsertNode(n radiolink.NodeInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes[n.ID] = copyNode(n)
}

// RemoveNode deletes a directory entry.
func (l *Link) RemoveNode(id radiolink.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.nodes, id)
}

// SetPosition records a position report for id, creating the node if needed.
func (l *Link) SetPosition(id radiolink.NodeID, pos radiolink.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.nodes[id]
	n.ID = id
	p := pos
	n.Position = &p
	l.nodes[id] = n
}

// ClearPosition removes the position from id's entry.
func (l *Link) ClearPosition(id radiolink.NodeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.nodes[id]; ok {
		n.Position = nil
		l.nodes[id] = n
	}
}

// SendText records the message.
func (l *Link) SendText(ctx context.Context, to radiolink.NodeID, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return radiolink.ErrClosed
	}
	if l.SendErr != nil {
		return l.SendErr
	}
	l.sent = append(l.sent, Sent{To: to, Text: text, At: time.Now()})
	return nil
}

// Sent returns a copy of every recorded outbound message.
func (l *Link) Sent() []Sent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Sent, len(l.sent))
	copy(out, l.sent)
	return out
}

// Close disconnects the link and drops all subscribers.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.connected = false
	l.subscribers = make(map[int]radiolink.Handlers)
	return nil
}

func (l *Link) notifyConnected() {
	l.mu.RLock()
	handlers := l.snapshotLocked()
	l.mu.RUnlock()

	for _, h := range handlers {
		if h.OnConnected != nil {
			h.OnConnected()
		}
	}
}

// snapshotLocked returns subscribers in registration order. Caller holds l.mu.
func (l *Link) snapshotLocked() []radiolink.Handlers {
	ids := make([]int, 0, len(l.subscribers))
	for id := range l.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]radiolink.Handlers, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.subscribers[id])
	}
	return out
}

func copyNode(n radiolink.NodeInfo) radiolink.NodeInfo {
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	return n
}
