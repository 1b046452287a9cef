// Package metrics exposes RangeBot activity as Prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/responder"
)

// Collector bundles the responder metrics. It implements responder.Recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	MessagesReceived *prometheus.CounterVec
	RepliesSent      prometheus.Counter
	RepliesDropped   *prometheus.CounterVec
	LinkConnections  prometheus.Counter
	ReplyDistance    prometheus.Histogram
}

var _ responder.Recorder = (*Collector)(nil)

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice reuses the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	received, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangebot_messages_received_total",
		Help: "Inbound mesh packets seen by the responder, labeled by application category.",
	}, []string{"category"}), "rangebot_messages_received_total")
	if err != nil {
		return nil, err
	}

	sent, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rangebot_replies_sent_total",
		Help: "Range replies handed to the radio link.",
	}), "rangebot_replies_sent_total")
	if err != nil {
		return nil, err
	}

	dropped, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rangebot_replies_dropped_total",
		Help: "Recognized commands that produced no reply, labeled by reason.",
	}, []string{"reason"}), "rangebot_replies_dropped_total")
	if err != nil {
		return nil, err
	}

	connections, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rangebot_link_connections_total",
		Help: "Connection-established events raised by the radio link.",
	}), "rangebot_link_connections_total")
	if err != nil {
		return nil, err
	}

	distance, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rangebot_reply_distance_meters",
		Help:    "Distance reported in range replies.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 9), // 100 m .. ~6,550 km
	}), "rangebot_reply_distance_meters")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		MessagesReceived: received,
		RepliesSent:      sent,
		RepliesDropped:   dropped,
		LinkConnections:  connections,
		ReplyDistance:    distance,
	}, nil
}

// MessageReceived counts an inbound packet.
func (c *Collector) MessageReceived(ev radiolink.MessageEvent) {
	if c == nil {
		return
	}
	category := string(ev.Category)
	if category == "" {
		category = "unknown"
	}
	c.MessagesReceived.WithLabelValues(category).Inc()
}

// ReplySent counts a reply and observes its distance.
func (c *Collector) ReplySent(_ radiolink.NodeID, _ string, meters int) {
	if c == nil {
		return
	}
	c.RepliesSent.Inc()
	c.ReplyDistance.Observe(float64(meters))
}

// ReplyDropped counts a dropped command.
func (c *Collector) ReplyDropped(_ radiolink.NodeID, reason string, _ error) {
	if c == nil {
		return
	}
	c.RepliesDropped.WithLabelValues(reason).Inc()
}

// LinkEstablished counts a (re)connection.
func (c *Collector) LinkEstablished() {
	if c == nil {
		return
	}
	c.LinkConnections.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
