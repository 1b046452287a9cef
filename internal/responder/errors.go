//
//
package responder

import (
	"errors"
	"fmt"

	"github.com/radio-control/rangebot/internal/radiolink"
)

var (
	// ErrUnknownNode means the node is not present in the link's directory.
	ErrUnknownNode = errors.New("UNKNOWN_NODE")

	// ErrNoPositionReported means the node is known but has no usable position.
	ErrNoPositionReported = errors.New("NO_POSITION_REPORTED")
)

// ResolveError records which node a position lookup failed for.
type ResolveError struct {
	Node radiolink.NodeID
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Node)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Drop reasons reported to recorders.
const (
	ReasonUnknownNode = "unknown_node"
	ReasonNoPosition  = "no_position"
	ReasonSendFailed  = "send_failed"
	ReasonInternal    = "internal"
)

// reasonFor maps a handling error to its drop reason.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownNode):
		return ReasonUnknownNode
	case errors.Is(err, ErrNoPositionReported):
		return ReasonNoPosition
	case errors.Is(err, errSend):
		return ReasonSendFailed
	default:
		return ReasonInternal
	}
}

var errSend = errors.New("SEND_FAILED")
