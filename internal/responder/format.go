//
//
package responder

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// TimestampLayout renders as YY/MM/DD HH:MM:SS.
const TimestampLayout = "06/01/02 15:04:05"

// FormatReply builds the range report, e.g. "pong at 25/01/31 14:03:22 range 12,345m".
func FormatReply(at time.Time, meters int) string {
	return fmt.Sprintf("pong at %s range %sm", at.Format(TimestampLayout), humanize.Comma(int64(meters)))
}
