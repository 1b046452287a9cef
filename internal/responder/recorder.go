//
//
package responder

import "github.com/radio-control/rangebot/internal/radiolink"

// Recorder observes responder activity. Audit, metrics and telemetry each
// implement it.
type Recorder interface {
	MessageReceived(ev radiolink.MessageEvent)
	ReplySent(to radiolink.NodeID, text string, meters int)
	ReplyDropped(from radiolink.NodeID, reason string, err error)
	LinkEstablished()
}

// Recorders fans every call out to each member in order.
type Recorders []Recorder

func (rs Recorders) MessageReceived(ev radiolink.MessageEvent) {
	for _, r := range rs {
		r.MessageReceived(ev)
	}
}

func (rs Recorders) ReplySent(to radiolink.NodeID, text string, meters int) {
	for _, r := range rs {
		r.ReplySent(to, text, meters)
	}
}

func (rs Recorders) ReplyDropped(from radiolink.NodeID, reason string, err error) {
	for _, r := range rs {
		r.ReplyDropped(from, reason, err)
	}
}

func (rs Recorders) LinkEstablished() {
	for _, r := range rs {
		r.LinkEstablished()
	}
}
