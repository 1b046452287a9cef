// Ports (interfaces) for API server dependencies.

package api

import (
	"context"
	"net/http"

	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/radiolink/sim"
	"github.com/radio-control/rangebot/internal/responder"
	"github.com/radio-control/rangebot/internal/telemetry"
)

// LinkPort is the read side of the Radio Link the API exposes.
type LinkPort interface {
	radiolink.Directory
	LocalID() radiolink.NodeID
}

// RangePort computes the distance from the local device to a node.
type RangePort interface {
	Range(node radiolink.NodeID) (int, error)
}

// TelemetryPort defines the minimal interface the API needs from the telemetry hub.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// SimPort is implemented by links that accept injected traffic. The control
// endpoints are only served when the link satisfies it.
type SimPort interface {
	InjectText(from radiolink.NodeID, text string) error
	SetPosition(id radiolink.NodeID, pos radiolink.Position)
	Reconnect() error
	Sent() []sim.Sent
}

// Compile-time assertions for port conformance
var _ LinkPort = (radiolink.Link)(nil)
var _ RangePort = (*responder.Responder)(nil)
var _ TelemetryPort = (*telemetry.Hub)(nil)
var _ SimPort = (*sim.Link)(nil)
