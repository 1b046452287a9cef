//
//
package radiolink

import "errors"

var (
	ErrNoDriver      = errors.New("NO_DRIVER")
	ErrInvalidTarget = errors.New("INVALID_TARGET")
	ErrClosed        = errors.New("LINK_CLOSED")
	ErrInvalidEvent  = errors.New("INVALID_EVENT")
)
