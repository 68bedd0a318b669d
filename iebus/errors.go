package iebus

import "errors"

var (
	// ErrNotEnabled indicates that a read or write was attempted while the
	// controller's output stage is disabled. The bus is never touched.
	ErrNotEnabled = errors.New("iebus: controller is not enabled")

	// ErrNoStartBit indicates that no valid start bit was observed: the
	// first pulse on the bus fell outside the start-bit acceptance window.
	// This is the normal "nothing to receive" outcome of a read, not a
	// fault; callers typically retry with a fresh ReadMessage call.
	ErrNoStartBit = errors.New("iebus: no valid start bit")

	// ErrParity indicates that a received field failed its parity check.
	// The error is wrapped with the name of the failing field.
	ErrParity = errors.New("iebus: parity error")

	// ErrNak indicates that the peer rejected a transmitted field with a
	// NAK handshake. The error is wrapped with the name of the failing field.
	ErrNak = errors.New("iebus: field not acknowledged")
)

var (
	// ErrInvalidTiming indicates an inconsistent bit-timing profile.
	ErrInvalidTiming = errors.New("iebus: invalid timing profile")

	// ErrInvalidAddress indicates a node or frame address outside the
	// 12-bit range.
	ErrInvalidAddress = errors.New("iebus: address out of 12-bit range")

	// ErrInvalidMessage indicates a message that violates the frame
	// invariants (field width overflow or payload length out of [1, 256]).
	ErrInvalidMessage = errors.New("iebus: invalid message")
)

var (
	// ErrMonitorClosed indicates an operation on a Monitor that has been
	// closed.
	ErrMonitorClosed = errors.New("iebus: monitor closed")

	// ErrMonitorRunning indicates that the Monitor's read loop is already
	// running.
	ErrMonitorRunning = errors.New("iebus: monitor already running")
)
