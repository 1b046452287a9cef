//
//
package responder

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/radio-control/rangebot/internal/geo"
	"github.com/radio-control/rangebot/internal/radiolink"
)

// DefaultCommands are the message bodies that trigger a range reply.
var DefaultCommands = []string{"ping", "test", "p", "t"}

// DefaultSendTimeout bounds a single reply hand-off to the link.
const DefaultSendTimeout = 10 * time.Second

// Config controls which messages are answered and whether a greeting is
// broadcast when the link comes up.
type Config struct {
	Commands        []string
	GreetingEnabled bool
	GreetingText    string
	SendTimeout     time.Duration
}

// LinkPort is the part of the Radio Link the responder needs.
type LinkPort interface {
	radiolink.Directory
	LocalID() radiolink.NodeID
	SendText(ctx context.Context, to radiolink.NodeID, text string) error
}

// Responder answers range commands.
type Responder struct {
	link        LinkPort
	logger      *log.Logger
	commands    map[string]struct{}
	greeting    string
	sendTimeout time.Duration
	recorder    Recorder
	now         func() time.Time
}

// New creates a responder. A nil logger writes to the standard logger.
func New(link LinkPort, cfg Config, logger *log.Logger, recorders ...Recorder) *Responder {
	if logger == nil {
		logger = log.Default()
	}

	commands := cfg.Commands
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		set[normalize(c)] = struct{}{}
	}

	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	r := &Responder{
		link:        link,
		logger:      logger,
		commands:    set,
		sendTimeout: timeout,
		recorder:    Recorders(recorders),
		now:         time.Now,
	}
	if cfg.GreetingEnabled {
		r.greeting = cfg.GreetingText
	}
	return r
}

// SetClock replaces the time source used for reply timestamps.
func (r *Responder) SetClock(now func() time.Time) {
	r.now = now
}

// Register subscribes the responder's handlers to link and returns the
// function that removes them.
func (r *Responder) Register(link radiolink.Link) func() {
	return link.Subscribe(radiolink.Handlers{
		OnMessage:   r.HandleMessage,
		OnConnected: r.OnLinkEstablished,
	})
}

// IsCommand reports whether text is one of the configured commands.
func (r *Responder) IsCommand(text string) bool {
	_, ok := r.commands[normalize(text)]
	return ok
}

// HandleMessage answers a command message with a range report. It never
// panics and never returns an error: failures are logged and the event dropped.
func (r *Responder) HandleMessage(ev radiolink.MessageEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("panic: %v", rec)
			r.logger.Printf("Failed to handle message from %s: %v", ev.From, err)
			r.recorder.ReplyDropped(ev.From, ReasonInternal, err)
		}
	}()

	r.recorder.MessageReceived(ev)

	if ev.Category != radiolink.CategoryText || ev.From == r.link.LocalID() {
		return
	}

	text := ev.Text()
	r.logger.Printf("Message: %s", text)

	if !r.IsCommand(text) {
		return
	}

	meters, err := r.Range(ev.From)
	if err != nil {
		r.drop(ev.From, err)
		return
	}

	reply := FormatReply(r.now(), meters)
	if err := r.send(ev.From, reply); err != nil {
		r.drop(ev.From, err)
		return
	}

	r.logger.Printf("Replied to %s: %s", ev.From, reply)
	r.recorder.ReplySent(ev.From, reply, meters)
}

// Range returns the truncated distance in meters between the local device
// and node.
func (r *Responder) Range(node radiolink.NodeID) (int, error) {
	self, err := r.ResolvePosition(r.link.LocalID())
	if err != nil {
		return 0, err
	}
	peer, err := r.ResolvePosition(node)
	if err != nil {
		return 0, err
	}
	return int(geo.Distance(self, peer)), nil
}

// ResolvePosition looks up the last known position of node.
func (r *Responder) ResolvePosition(node radiolink.NodeID) (radiolink.Position, error) {
	info, ok := r.link.Node(node)
	if !ok {
		return radiolink.Position{}, &ResolveError{Node: node, Err: ErrUnknownNode}
	}
	if info.Position == nil || !info.Position.IsSet() || !geo.Valid(*info.Position) {
		return radiolink.Position{}, &ResolveError{Node: node, Err: ErrNoPositionReported}
	}
	return *info.Position, nil
}

// OnLinkEstablished is called on every (re)connection.
func (r *Responder) OnLinkEstablished() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("Failed to handle connection event: %v", rec)
		}
	}()

	r.logger.Println("Connected to device")
	r.recorder.LinkEstablished()

	if r.greeting == "" {
		return
	}
	if err := r.send(radiolink.Broadcast, r.greeting); err != nil {
		r.logger.Printf("Failed to send greeting: %v", err)
	}
}

func (r *Responder) send(to radiolink.NodeID, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
	defer cancel()

	if err := r.link.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("%w: %w", errSend, err)
	}
	return nil
}

func (r *Responder) drop(from radiolink.NodeID, err error) {
	r.logger.Printf("No range for %s: %v", from, err)
	r.recorder.ReplyDropped(from, reasonFor(err), err)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
