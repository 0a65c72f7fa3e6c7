package rfm95

import (
	"errors"
	"fmt"
)

// Error kinds returned by the driver. Use errors.Is to test for them.
var (
	// ErrTransport is a bus or reset line failure. The radio should be
	// re-initialized after one.
	ErrTransport = errors.New("rfm95: transport error")
	// ErrDevice means the chip reported a revision or register value the
	// driver does not understand.
	ErrDevice              = errors.New("rfm95: unexpected device state")
	ErrInvalidArgument     = errors.New("rfm95: invalid argument")
	ErrTimeout             = errors.New("rfm95: rx timeout")
	ErrInvalidMessage      = errors.New("rfm95: rx crc error")
	ErrDiagnosticsDisabled = errors.New("rfm95: diagnostics disabled")
)

func errorf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
