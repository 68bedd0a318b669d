package iebus

import "fmt"

// Bit is a single logical bit value (0 or 1).
type Bit uint8

// Data is a raw field value received from or transmitted to the bus.
// The widest frame field is 12 bits, so 16 bits is sufficient.
type Data uint16

// Address is a 12-bit IEBus node address.
type Address uint16

// Frame field widths in bits, in wire order. Every field is immediately
// followed by one parity bit on the wire.
const (
	MasterAddressBits = 12
	SlaveAddressBits  = 12
	ControlBits       = 4
	DataLengthBits    = 8
	DataByteBits      = 8
)

// Frame field value limits.
const (
	MaxAddress Address = 0xFFF // 12-bit
	MaxControl byte    = 0xF   // 4-bit

	// MaxDataLength is the maximum payload size of a single frame.
	// The 8-bit length field encodes it as 0 on the wire.
	MaxDataLength = 256
)

// BroadcastType distinguishes frames addressed to every node from frames
// addressed to one specific slave.
type BroadcastType Bit

const (
	// Broadcast frames are not acknowledged by any node.
	Broadcast BroadcastType = 0
	// ForDevice frames target the slave address and require the addressed
	// node to acknowledge each field.
	ForDevice BroadcastType = 1
)

func (b BroadcastType) String() string {
	switch b {
	case Broadcast:
		return "B"
	case ForDevice:
		return "D"
	}

	return "U"
}

// Acknowledgment is the per-field handshake answer exchanged after a field's
// parity bit.
type Acknowledgment Bit

const (
	// ACK signals correct reception of a field. Transmitted as bit 0.
	ACK Acknowledgment = 0
	// NAK signals rejection of a field. Transmitted as bit 1.
	NAK Acknowledgment = 1
)

func (a Acknowledgment) String() string {
	if a == ACK {
		return "ACK"
	}

	return "NAK"
}

// Message is one IEBus frame: the unit of exchange between two controllers.
//
// A Message is transient. It is either fully assembled by one ReadMessage
// call or fully supplied to one WriteMessage call; it carries no identity
// beyond its field values.
type Message struct {
	// Broadcast selects broadcast or device-addressed delivery.
	Broadcast BroadcastType
	// Master is the 12-bit address of the sending node.
	Master Address
	// Slave is the 12-bit address of the intended receiver. It is only
	// meaningful as a real address when Broadcast == ForDevice.
	Slave Address
	// Control is the 4-bit control code. Its semantics are opaque to the
	// protocol core.
	Control byte
	// Data is the payload, 1 to 256 bytes. The wire length field is
	// len(Data) modulo 256: a frame carrying 256 bytes encodes length 0.
	Data []byte
}

// DataLength returns the payload byte count.
func (m *Message) DataLength() int {
	return len(m.Data)
}

// Validate checks the frame invariants: addresses fit in 12 bits, the
// control code fits in 4 bits, and the payload length is in [1, MaxDataLength].
func (m *Message) Validate() error {
	if m.Master > MaxAddress {
		return fmt.Errorf("%w: master %#x", ErrInvalidAddress, uint16(m.Master))
	}
	if m.Slave > MaxAddress {
		return fmt.Errorf("%w: slave %#x", ErrInvalidAddress, uint16(m.Slave))
	}
	if m.Control > MaxControl {
		return fmt.Errorf("%w: control %#x exceeds 4 bits", ErrInvalidMessage, m.Control)
	}
	if len(m.Data) < 1 || len(m.Data) > MaxDataLength {
		return fmt.Errorf("%w: payload length %d out of range [1, %d]", ErrInvalidMessage, len(m.Data), MaxDataLength)
	}

	return nil
}

// String renders the frame in a compact single-line form, e.g.
//
//	D M0x110 S0x880 C0xF L4 [60 01 00 2B]
func (m *Message) String() string {
	return fmt.Sprintf("%s M0x%03X S0x%03X C0x%X L%d [% X]",
		m.Broadcast, uint16(m.Master), uint16(m.Slave), m.Control, len(m.Data), m.Data)
}
