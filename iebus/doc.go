// Package iebus implements the IEBus frame and bit-level protocols through
// software-timed pulse generation and measurement on general-purpose digital
// pins. No UART or other serial peripheral is involved.
//
// IEBus is a half-duplex, single-wire automotive multiplex bus. Each bit is
// a high-to-low pulse whose high-phase width carries the value; a
// distinguished long pulse marks the start of a frame; every frame field
// carries its own parity bit and, for all fields after the master address,
// an acknowledgment handshake between the communicating nodes.
//
// # Layering
//
// The package splits the protocol into two layers:
//
//   - [Driver] is the physical-layer bit codec. It owns the receive,
//     transmit and output-enable pins plus the [Timing] profile, and
//     converts between logical bits and timed pulses. It has no knowledge
//     of frame structure.
//   - [Controller] is the protocol-layer frame controller. It owns a fixed
//     local node address and a Driver, and implements ReadMessage and
//     WriteMessage as strict field-by-field state machines with per-field
//     parity verification and ACK/NAK handshake policy.
//
// [Message] is the passive record exchanged between two controllers; it is
// produced by ReadMessage and consumed by WriteMessage.
//
// [Monitor] sits above the Controller: it runs the blocking read loop on a
// dedicated goroutine and dispatches received frames to handlers registered
// per master address.
//
// # Timing model
//
// All codec primitives busy-poll a microsecond clock (the [hal.Clock]
// collaborator) and the receive pin. The design is fully synchronous and
// blocking: there is no suspension point between pulse-edge detection and
// duration measurement, because scheduler jitter at that point would break
// the decode tolerance. There are no timeouts on bit waits; a stuck bus
// blocks the calling goroutine until the bus recovers. Cancellation is not
// supported at this layer.
//
// # Error model
//
// Every field-level failure aborts the whole read or write immediately and
// surfaces as a wrapped sentinel error ([ErrNoStartBit], [ErrParity],
// [ErrNak], [ErrNotEnabled]). No partial message is returned and no retry
// happens inside the package; diagnostic detail is reported through the
// logger package side channel only.
package iebus
