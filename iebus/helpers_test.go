package iebus

import (
	"testing"
	"time"

	"github.com/arloliu/go-iebus/hal/sim"
)

// newTestBusConfig creates a Config attached to a fresh simulated bus.
func newTestBusConfig(t *testing.T, address Address, opts ...Option) (*Config, *sim.Bus) {
	t.Helper()

	bus := sim.NewBus()

	cfg, err := NewConfig(bus.RxPin(), bus.TxPin(), bus.EnablePin(), bus.Clock(), address, opts...)
	if err != nil {
		t.Fatalf("newTestBusConfig: %v", err)
	}

	return cfg, bus
}

// newTestDriver creates an enabled Driver on a fresh simulated bus.
func newTestDriver(t *testing.T) (*Driver, *sim.Bus) {
	t.Helper()

	cfg, bus := newTestBusConfig(t, 0)
	drv := NewDriver(cfg)
	drv.Enable()

	return drv, bus
}

// newTestController creates an enabled Controller on a fresh simulated bus.
func newTestController(t *testing.T, address Address, opts ...Option) (*Controller, *sim.Bus) {
	t.Helper()

	cfg, bus := newTestBusConfig(t, address, opts...)
	ctrl := NewController(cfg)
	ctrl.Enable()

	return ctrl, bus
}

// bitPulse returns the high-pulse width encoding the given bit.
func bitPulse(tm Timing, bit Bit) time.Duration {
	if bit != 0 {
		return tm.Bit1High
	}

	return tm.Bit0High
}

// appendBits appends the pulses encoding the low numBits bits of value,
// most-significant bit first.
func appendBits(pulses []time.Duration, tm Timing, value Data, numBits int) []time.Duration {
	for i := numBits - 1; i >= 0; i-- {
		pulses = append(pulses, bitPulse(tm, Bit(value>>i&1)))
	}

	return pulses
}

// appendField appends a field's value bits followed by its parity bit.
func appendField(pulses []time.Duration, tm Timing, value Data, numBits int) []time.Duration {
	pulses = appendBits(pulses, tm, value, numBits)

	return append(pulses, bitPulse(tm, Parity(value, numBits)))
}

// appendRequest appends the handshake bit with which the transmitting side
// asks for an acknowledgment (bit 0).
func appendRequest(pulses []time.Duration, tm Timing) []time.Duration {
	return append(pulses, bitPulse(tm, 0))
}

// framePulses builds the complete pulse sequence of a frame as a master
// node would put it on the wire, requesting an acknowledgment after every
// field that carries a handshake slot.
func framePulses(tm Timing, msg *Message) []time.Duration {
	var pulses []time.Duration

	pulses = append(pulses, tm.StartBitHigh)
	pulses = append(pulses, bitPulse(tm, Bit(msg.Broadcast)))

	pulses = appendField(pulses, tm, Data(msg.Master), MasterAddressBits)

	pulses = appendField(pulses, tm, Data(msg.Slave), SlaveAddressBits)
	pulses = appendRequest(pulses, tm)

	pulses = appendField(pulses, tm, Data(msg.Control), ControlBits)
	pulses = appendRequest(pulses, tm)

	pulses = appendField(pulses, tm, Data(len(msg.Data)&0xFF), DataLengthBits)
	pulses = appendRequest(pulses, tm)

	for _, b := range msg.Data {
		pulses = appendField(pulses, tm, Data(b), DataByteBits)
		pulses = appendRequest(pulses, tm)
	}

	return pulses
}

// testMessage returns a small valid frame addressed to the given slave.
func testMessage(slave Address) *Message {
	return &Message{
		Broadcast: ForDevice,
		Master:    0x110,
		Slave:     slave,
		Control:   0xF,
		Data:      []byte{0x60, 0x01, 0x00, 0x2B},
	}
}
