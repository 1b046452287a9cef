package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
)

type sseEvent struct {
	ID   int64
	Type string
	Data map[string]interface{}
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("Failed to read SSE stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "id: "):
			ev.ID, _ = strconv.ParseInt(strings.TrimPrefix(line, "id: "), 10, 64)
		case strings.HasPrefix(line, "event: "):
			ev.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Data); err != nil {
				t.Fatalf("Bad event data %q: %v", line, err)
			}
		}
	}
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Subscribe(r.Context(), w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func connect(t *testing.T, url string, lastID int64) (*bufio.Reader, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if lastID > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatInt(lastID, 10))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	return bufio.NewReader(resp.Body), cancel
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeReceivesReadyAndEvents(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, func() map[string]interface{} {
		return map[string]interface{}{"localId": "!self"}
	})
	defer hub.Stop()
	srv := newTestServer(t, hub)

	r, cancel := connect(t, srv.URL, 0)
	defer cancel()

	ready := readEvent(t, r)
	if ready.Type != EventReady || ready.Data["localId"] != "!self" {
		t.Fatalf("ready event = %+v", ready)
	}
	waitForClients(t, hub, 1)

	hub.ReplySent("!peer", "pong at 25/01/31 14:03:22 range 12,345m", 12345)
	ev := readEvent(t, r)
	if ev.Type != EventReply || ev.ID != 1 || ev.Data["meters"] != float64(12345) {
		t.Errorf("reply event = %+v", ev)
	}

	hub.ReplyDropped("!peer", "unknown_node", errors.New("UNKNOWN_NODE: !peer"))
	ev = readEvent(t, r)
	if ev.Type != EventDrop || ev.ID != 2 || ev.Data["reason"] != "unknown_node" {
		t.Errorf("drop event = %+v", ev)
	}
}

func TestSubscribeReplaysAfterLastEventID(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, nil)
	defer hub.Stop()
	srv := newTestServer(t, hub)

	hub.LinkEstablished()
	hub.MessageReceived(radiolink.MessageEvent{From: "!peer", Category: radiolink.CategoryText, Payload: []byte("ping")})
	hub.ReplySent("!peer", "pong", 1)

	r, cancel := connect(t, srv.URL, 1)
	defer cancel()

	if ev := readEvent(t, r); ev.Type != EventReady || ev.Data["lastEventId"] != float64(3) {
		t.Fatalf("ready event = %+v", ev)
	}
	msg := readEvent(t, r)
	if msg.ID != 2 || msg.Type != EventMessage || msg.Data["text"] != "ping" {
		t.Errorf("replayed message = %+v", msg)
	}
	reply := readEvent(t, r)
	if reply.ID != 3 || reply.Type != EventReply {
		t.Errorf("replayed reply = %+v", reply)
	}
}

func TestReplayDoesNotDuplicateQueuedEvents(t *testing.T) {
	var hub *Hub
	var once sync.Once
	// The snapshot runs after the client is registered and before replay,
	// so an event published here is both buffered and queued.
	hub = NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, func() map[string]interface{} {
		once.Do(func() { hub.ReplySent("!peer", "pong", 2) })
		return map[string]interface{}{}
	})
	defer hub.Stop()
	srv := newTestServer(t, hub)

	hub.LinkEstablished()

	r, cancel := connect(t, srv.URL, 1)
	defer cancel()

	if ev := readEvent(t, r); ev.Type != EventReady {
		t.Fatalf("ready event = %+v", ev)
	}
	if ev := readEvent(t, r); ev.ID != 2 || ev.Type != EventReply {
		t.Fatalf("replayed event = %+v", ev)
	}

	hub.ReplySent("!peer", "pong", 3)
	if ev := readEvent(t, r); ev.ID != 3 {
		t.Errorf("event after replay has ID %d, want 3 (duplicate delivered)", ev.ID)
	}
}

func TestMessageReceivedIgnoresNonText(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, nil)
	defer hub.Stop()

	hub.MessageReceived(radiolink.MessageEvent{From: "!peer", Category: radiolink.CategoryPosition})
	if hub.Buffer().Len() != 0 {
		t.Errorf("non-text packet was published")
	}
}

func TestHeartbeat(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: 20 * time.Millisecond}, nil)
	defer hub.Stop()
	srv := newTestServer(t, hub)

	r, cancel := connect(t, srv.URL, 0)
	defer cancel()
	readEvent(t, r)

	ev := readEvent(t, r)
	if ev.Type != EventHeartbeat || ev.ID != 0 {
		t.Errorf("expected heartbeat without id, got %+v", ev)
	}
	if hub.Buffer().Len() != 0 {
		t.Error("heartbeat was buffered")
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	hub := NewHub(Config{BufferSize: 10, HeartbeatInterval: time.Hour}, nil)
	srv := newTestServer(t, hub)

	r, cancel := connect(t, srv.URL, 0)
	defer cancel()
	readEvent(t, r)
	waitForClients(t, hub, 1)

	hub.Stop()
	hub.Stop()
	waitForClients(t, hub, 0)

	hub.LinkEstablished()
	if hub.Buffer().Len() != 0 {
		t.Error("publish after Stop was buffered")
	}

	rec := httptest.NewRecorder()
	if err := hub.Subscribe(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil)); err == nil {
		t.Error("Subscribe after Stop should fail")
	}
}

func TestEventBufferCapacity(t *testing.T) {
	b := NewEventBuffer(3)
	for i := int64(1); i <= 5; i++ {
		b.Add(Event{ID: i, Type: EventReply})
	}
	if b.Len() != 3 || b.Cap() != 3 {
		t.Fatalf("size=%d capacity=%d", b.Len(), b.Cap())
	}
	events := b.After(0)
	if events[0].ID != 3 || events[2].ID != 5 {
		t.Errorf("buffer kept %+v", events)
	}
	if got := b.After(4); len(got) != 1 || got[0].ID != 5 {
		t.Errorf("After(4) = %+v", got)
	}
}
