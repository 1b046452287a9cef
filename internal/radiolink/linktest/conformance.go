// Package linktest provides a conformance suite every Radio Link driver
// must pass before the responder can rely on it.
package linktest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
)

// Harness drives a link under test from the "radio side".
type Harness interface {
	// Inject delivers an inbound event as if received over the air.
	Inject(ev radiolink.MessageEvent) error
	// Reconnect makes the link raise OnConnected.
	Reconnect() error
}

// Factory returns a fresh, open link and its harness.
type Factory func(t *testing.T) (radiolink.Link, Harness)

// Result is the outcome of one conformance check.
type Result struct {
	Name     string
	Passed   bool
	Error    string
	Duration time.Duration
}

// Report collects every result of a run.
type Report struct {
	Results []Result
	Passed  int
	Failed  int
}

func (r *Report) add(name string, start time.Time, err error) {
	res := Result{Name: name, Passed: err == nil, Duration: time.Since(start)}
	if err != nil {
		res.Error = err.Error()
		r.Failed++
	} else {
		r.Passed++
	}
	r.Results = append(r.Results, res)
}

type check struct {
	name string
	run  func(link radiolink.Link, h Harness) error
}

var checks = []check{
	{"LocalID_InDirectory", checkLocalID},
	{"Subscribe_DeliversMessages", checkDelivery},
	{"Unsubscribe_StopsDelivery", checkUnsubscribe},
	{"Reconnect_RaisesConnected", checkConnected},
	{"Inject_RejectsInvalidEvent", checkInvalidEvent},
	{"Node_ReturnsCopy", checkNodeCopy},
	{"SendText_HonorsContext", checkSendContext},
	{"SendText_AfterClose", checkSendAfterClose},
}

// RunConformance runs every check against a fresh link and fails t if any
// of them fail.
func RunConformance(t *testing.T, newLink Factory) *Report {
	t.Helper()
	report := &Report{}

	for _, c := range checks {
		link, h := newLink(t)
		start := time.Now()
		err := c.run(link, h)
		_ = link.Close()
		report.add(c.name, start, err)
	}

	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL: " + r.Error
		}
		t.Logf("%-28s %s (%v)", r.Name, status, r.Duration)
	}
	if report.Failed > 0 {
		t.Fatalf("Link conformance failed: %d/%d checks passed", report.Passed, len(report.Results))
	}
	return report
}

func checkLocalID(link radiolink.Link, _ Harness) error {
	id := link.LocalID()
	if id == "" {
		return fmt.Errorf("empty local id")
	}
	if _, ok := link.Node(id); !ok {
		return fmt.Errorf("local node %s missing from directory", id)
	}
	return nil
}

func checkDelivery(link radiolink.Link, h Harness) error {
	got := make(chan radiolink.MessageEvent, 4)
	unsubscribe := link.Subscribe(radiolink.Handlers{
		OnMessage: func(ev radiolink.MessageEvent) { got <- ev },
	})
	defer unsubscribe()

	ev := radiolink.MessageEvent{
		From:     "!0000beef",
		To:       link.LocalID(),
		Category: radiolink.CategoryText,
		Payload:  []byte("ping"),
	}
	if err := h.Inject(ev); err != nil {
		return fmt.Errorf("inject: %w", err)
	}
	select {
	case delivered := <-got:
		if delivered.From != ev.From || delivered.Text() != "ping" || delivered.ReceivedAt.IsZero() {
			return fmt.Errorf("delivered event %+v", delivered)
		}
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("event not delivered")
	}
}

func checkUnsubscribe(link radiolink.Link, h Harness) error {
	var calls atomic.Int32
	unsubscribe := link.Subscribe(radiolink.Handlers{
		OnMessage: func(radiolink.MessageEvent) { calls.Add(1) },
	})
	unsubscribe()
	unsubscribe()

	if err := h.Inject(radiolink.MessageEvent{From: "!0000beef", Category: radiolink.CategoryText}); err != nil {
		return fmt.Errorf("inject: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		return fmt.Errorf("handler called %d times after unsubscribe", n)
	}
	return nil
}

func checkConnected(link radiolink.Link, h Harness) error {
	var connected atomic.Int32
	unsubscribe := link.Subscribe(radiolink.Handlers{OnConnected: func() { connected.Add(1) }})
	defer unsubscribe()

	if err := h.Reconnect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	if err := h.Reconnect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	if err := waitFor(func() bool { return connected.Load() == 2 }); err != nil {
		return fmt.Errorf("OnConnected raised %d times, want 2", connected.Load())
	}
	return nil
}

func checkInvalidEvent(_ radiolink.Link, h Harness) error {
	err := h.Inject(radiolink.MessageEvent{Category: radiolink.CategoryText})
	if !errors.Is(err, radiolink.ErrInvalidEvent) {
		return fmt.Errorf("event without sender: got %v, want ErrInvalidEvent", err)
	}
	return nil
}

func checkNodeCopy(link radiolink.Link, _ Harness) error {
	for _, n := range link.Nodes() {
		if n.Position == nil {
			continue
		}
		want := *n.Position
		n.Position.Latitude = radiolink.Unset
		again, ok := link.Node(n.ID)
		if !ok || again.Position == nil || *again.Position != want {
			return fmt.Errorf("mutating Nodes() result changed directory entry %s", n.ID)
		}
		return nil
	}
	return nil
}

func checkSendContext(link radiolink.Link, _ Harness) error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := link.SendText(ctx, radiolink.Broadcast, "hello"); !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cancelled send: got %v, want context.Canceled", err)
	}
	return nil
}

func checkSendAfterClose(link radiolink.Link, _ Harness) error {
	if err := link.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := link.SendText(context.Background(), radiolink.Broadcast, "hello"); !errors.Is(err, radiolink.ErrClosed) {
		return fmt.Errorf("send after close: got %v, want ErrClosed", err)
	}
	return nil
}

// waitFor polls cond for drivers that deliver on their own goroutine.
func waitFor(cond func() bool) error {
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
