//
//
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/rangebot/internal/radiolink"
	"github.com/radio-control/rangebot/internal/responder"
)

// Actions recorded in the trail.
const (
	ActionReply     = "reply"
	ActionDrop      = "drop"
	ActionConnected = "connected"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	Timestamp time.Time              `json:"ts"`
	Node      string                 `json:"node,omitempty"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Outcome   string                 `json:"outcome"`
	Code      string                 `json:"code"`
}

// Options tune file rotation.
type Options struct {
	MaxSizeMB  int
	MaxBackups int
}

// Logger writes audit entries. It implements responder.Recorder.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *lumberjack.Logger
	now      func() time.Time
}

var _ responder.Recorder = (*Logger)(nil)

// NewLogger creates logDir if needed and opens logDir/audit.jsonl for appending.
func NewLogger(logDir string, opts Options) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, "audit.jsonl")

	// Fail early if the file is not writable; lumberjack would only report it
	// on the first write.
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	_ = f.Close()

	return &Logger{
		filePath: filePath,
		file: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		},
		now: time.Now,
	}, nil
}

// MessageReceived is not audited; only actions RangeBot takes are.
func (l *Logger) MessageReceived(radiolink.MessageEvent) {}

// ReplySent records a range reply.
func (l *Logger) ReplySent(to radiolink.NodeID, text string, meters int) {
	l.writeEntry(AuditEntry{
		Node:   string(to),
		Action: ActionReply,
		Params: map[string]interface{}{
			"text":   text,
			"meters": meters,
		},
		Outcome: "SUCCESS",
		Code:    "SUCCESS",
	})
}

// ReplyDropped records a command that could not be answered.
func (l *Logger) ReplyDropped(from radiolink.NodeID, reason string, err error) {
	params := map[string]interface{}{"reason": reason}
	if err != nil {
		params["error"] = err.Error()
	}
	l.writeEntry(AuditEntry{
		Node:    string(from),
		Action:  ActionDrop,
		Params:  params,
		Outcome: "DROPPED",
		Code:    getCodeFromError(err),
	})
}

// LinkEstablished records a (re)connection.
func (l *Logger) LinkEstablished() {
	l.writeEntry(AuditEntry{
		Action:  ActionConnected,
		Outcome: "SUCCESS",
		Code:    "SUCCESS",
	})
}

// writeEntry writes an audit entry to the log file.
func (l *Logger) writeEntry(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}
	entry.Timestamp = l.now().UTC()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	if _, err := l.file.Write(append(jsonData, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// getCodeFromError maps handling errors to standardized codes.
func getCodeFromError(err error) string {
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.Is(err, responder.ErrUnknownNode):
		return "UNKNOWN_NODE"
	case errors.Is(err, responder.ErrNoPositionReported):
		return "NO_POSITION"
	case errors.Is(err, radiolink.ErrClosed):
		return "UNAVAILABLE"
	default:
		return "ERROR"
	}
}

// Close closes the audit logger and its file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// GetFilePath returns the path to the audit log file.
func (l *Logger) GetFilePath() string {
	return l.filePath
}

// Rotate moves the current file aside and starts a new one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("audit logger is closed")
	}
	if err := l.file.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	return nil
}
