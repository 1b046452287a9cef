//
//
package radiolink

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind selects the transport a link is dialed over.
type Kind string

const (
	KindSerialAuto Kind = "serial-auto"
	KindSerial     Kind = "serial"
	KindTCP        Kind = "tcp"
	KindSim        Kind = "sim"
)

// DefaultTCPPort is the device stream API port.
const DefaultTCPPort = "4403"

// Target is a parsed port setting.
type Target struct {
	Kind    Kind
	Address string
}

func (t Target) String() string {
	if t.Address == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + ":" + t.Address
}

// ParseTarget interprets the configured port value:
//
//	auto          serial auto-detect
//	/dev/ttyUSB0  explicit serial device
//	sim           in-process simulator
//	tcp:host      network device, port defaults to 4403
//	host          same as tcp:host
func ParseTarget(port string) (Target, error) {
	port = strings.TrimSpace(port)
	switch {
	case port == "":
		return Target{}, fmt.Errorf("%w: empty port", ErrInvalidTarget)
	case strings.EqualFold(port, "auto"):
		return Target{Kind: KindSerialAuto}, nil
	case strings.EqualFold(port, "sim"):
		return Target{Kind: KindSim}, nil
	case strings.HasPrefix(port, "/dev/"):
		return Target{Kind: KindSerial, Address: port}, nil
	}

	host := strings.TrimPrefix(port, "tcp:")
	host = strings.TrimPrefix(host, "//")
	if host == "" || strings.ContainsAny(host, " /") {
		return Target{}, fmt.Errorf("%w: bad host %q", ErrInvalidTarget, port)
	}
	if !strings.Contains(host, ":") {
		host = host + ":" + DefaultTCPPort
	}
	return Target{Kind: KindTCP, Address: host}, nil
}

// DialFunc opens a link for a target.
type DialFunc func(ctx context.Context, target Target) (Link, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[Kind]DialFunc)
)

// Register makes a driver available for a target kind. A later call for the
// same kind replaces the earlier driver.
func Register(kind Kind, dial DialFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[kind] = dial
}

// Drivers lists the registered kinds in sorted order.
func Drivers() []Kind {
	driversMu.RLock()
	defer driversMu.RUnlock()

	kinds := make([]Kind, 0, len(drivers))
	for k := range drivers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Dial opens a link using the driver registered for target.Kind.
func Dial(ctx context.Context, target Target) (Link, error) {
	driversMu.RLock()
	dial, ok := drivers[target.Kind]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w for %s (registered: %v)", ErrNoDriver, target.Kind, Drivers())
	}

	link, err := dial(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}
	return link, nil
}
