//
//
package radiolink

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NodeID identifies a participant on the mesh, e.g. "!a1b2c3d4".
type NodeID string

// Broadcast addresses every node on the primary channel.
const Broadcast NodeID = "^all"

// Unset is the coordinate value a link reports when a node has no fix.
const Unset = -1000.0

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// IsSet reports whether neither coordinate carries the Unset sentinel.
func (p Position) IsSet() bool {
	return p.Latitude != Unset && p.Longitude != Unset
}

// NodeInfo is one entry of the link's node directory.
type NodeInfo struct {
	ID        NodeID    `json:"id" yaml:"id"`
	LongName  string    `json:"longName,omitempty" yaml:"longName"`
	ShortName string    `json:"shortName,omitempty" yaml:"shortName"`
	Position  *Position `json:"position,omitempty" yaml:"position"`
	LastHeard time.Time `json:"lastHeard,omitempty" yaml:"-"`
}

// Category is the application port a packet was addressed to.
type Category string

const (
	CategoryText      Category = "TEXT_MESSAGE_APP"
	CategoryPosition  Category = "POSITION_APP"
	CategoryNodeInfo  Category = "NODEINFO_APP"
	CategoryTelemetry Category = "TELEMETRY_APP"
	CategoryRouting   Category = "ROUTING_APP"
)

// MessageEvent is an inbound packet delivered to subscribers.
type MessageEvent struct {
	From       NodeID    `json:"from"`
	To         NodeID    `json:"to"`
	Channel    int       `json:"channel"`
	Category   Category  `json:"category"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Text returns the payload decoded as UTF-8 text.
func (e MessageEvent) Text() string {
	return string(e.Payload)
}

// Validate checks the fields every subscriber relies on.
func (e MessageEvent) Validate() error {
	if strings.TrimSpace(string(e.From)) == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidEvent)
	}
	if e.Category == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidEvent)
	}
	return nil
}

// Handlers are the callbacks a subscriber registers with a link.
// Either may be nil. Links may invoke them from their own goroutines.
type Handlers struct {
	OnMessage   func(MessageEvent)
	OnConnected func()
}

// Directory is the read-only view of the node table.
type Directory interface {
	// Node returns the directory entry for id.
	Node(id NodeID) (NodeInfo, bool)

	// Nodes returns a snapshot of every known node.
	Nodes() []NodeInfo
}

// Link is the contract every Radio Link driver implements.
type Link interface {
	Directory

	// LocalID returns the identity of the attached device.
	LocalID() NodeID

	// Subscribe registers handlers and returns a function that removes them.
	Subscribe(h Handlers) (unsubscribe func())

	// SendText queues a text message for delivery. It does not wait for an ack.
	SendText(ctx context.Context, to NodeID, text string) error

	// Close releases the device connection.
	Close() error
}
