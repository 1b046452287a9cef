package responder

import (
	"testing"
	"time"
)

func TestFormatReply(t *testing.T) {
	at := time.Date(2025, 1, 31, 14, 3, 22, 0, time.UTC)
	tests := []struct {
		meters int
		want   string
	}{
		{0, "pong at 25/01/31 14:03:22 range 0m"},
		{999, "pong at 25/01/31 14:03:22 range 999m"},
		{12345, "pong at 25/01/31 14:03:22 range 12,345m"},
		{559120, "pong at 25/01/31 14:03:22 range 559,120m"},
		{20015086, "pong at 25/01/31 14:03:22 range 20,015,086m"},
	}

	for _, tt := range tests {
		if got := FormatReply(at, tt.meters); got != tt.want {
			t.Errorf("FormatReply(%d) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestFormatReplyPadsFields(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := FormatReply(at, 1); got != "pong at 26/03/04 05:06:07 range 1m" {
		t.Errorf("FormatReply() = %q", got)
	}
}
