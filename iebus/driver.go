package iebus

import (
	"time"

	"github.com/arloliu/go-iebus/hal"
	"github.com/arloliu/go-iebus/logger"
)

// Driver is the IEBus bit codec: it translates between logical bit values
// and timed voltage pulses on the shared single-wire bus, and reports bus
// occupancy.
//
// Every operation is a blocking, synchronous procedure that busy-polls the
// clock and the receive pin. There are no timeouts beyond the pulse windows
// themselves; a bus held high or low indefinitely blocks the caller. The
// Driver has no knowledge of frame structure.
//
// Driver is NOT goroutine-safe: the bus and pins are one shared physical
// resource, and a single owning goroutine is assumed.
type Driver struct {
	rx     hal.Pin
	tx     hal.Pin
	enable hal.Pin
	clock  hal.Clock
	timing Timing
	logger logger.Logger

	enabled bool
}

// NewDriver creates a bit codec from the configuration.
func NewDriver(cfg *Config) *Driver {
	return &Driver{
		rx:     cfg.rx,
		tx:     cfg.tx,
		enable: cfg.enable,
		clock:  cfg.clock,
		timing: cfg.timing,
		logger: cfg.logger,
	}
}

// --- Bus state ---

// IsEnabled reports whether the transmitter output stage is powered.
//
// Transmit and most query operations are meaningless while disabled; the
// Driver does not enforce that itself, enforcement is the Controller's
// responsibility.
func (d *Driver) IsEnabled() bool {
	return d.enabled
}

// Enable powers the transmitter output stage by driving the enable pin high.
func (d *Driver) Enable() {
	d.enabled = true
	d.enable.Set(true)
}

// Disable powers down the transmitter output stage.
func (d *Driver) Disable() {
	d.enabled = false
	d.enable.Set(false)
}

// IsBusHigh reports the instantaneous level of the receive pin.
func (d *Driver) IsBusHigh() bool {
	return d.rx.Get()
}

// IsBusLow reports the inverse of IsBusHigh.
func (d *Driver) IsBusLow() bool {
	return !d.IsBusHigh()
}

// IsBusFree reports whether the bus has been idle long enough to transmit.
//
// It returns false immediately if the bus is high. Otherwise it samples the
// low level continuously; the bus is declared free once the low condition
// has persisted for one full data-bit period without a high transition.
// This is a minimum-idle-time heuristic, not collision avoidance: a window
// interrupted by any high sample reports busy even if the bus is idle again
// a moment later.
func (d *Driver) IsBusFree() bool {
	if d.IsBusHigh() {
		return false
	}

	startTime := d.clock.Now()

	for d.IsBusLow() {
		if d.clock.Now()-startTime >= d.timing.BitPeriod {
			return true
		}
	}

	return false
}

// --- Receive ---

// ReceiveStartBit blocks until one full pulse passes on the bus and reports
// whether its high phase matches the start-bit width within the tolerance
// window. A false result means the pulse was not a valid frame start; the
// caller must abandon the read attempt, no retry happens here.
func (d *Driver) ReceiveStartBit() bool {
	minHigh := d.timing.StartBitHigh - d.timing.StartBitTolerance
	maxHigh := d.timing.StartBitHigh + d.timing.StartBitTolerance

	highDuration := d.measurePulse()

	return highDuration >= minHigh && highDuration <= maxHigh
}

// ReceiveBit blocks until one full pulse passes on the bus and decodes its
// high phase into a bit value by nearest match against the two reference
// widths. There is no rejection path: any width decodes to the closer
// reference, with ties resolving to 0.
func (d *Driver) ReceiveBit() Bit {
	return d.decodeBit(d.measurePulse())
}

// ReceiveBits receives numBits individual bits and assembles them into an
// unsigned value, most-significant bit first.
func (d *Driver) ReceiveBits(numBits int) Data {
	var result Data

	for i := 0; i < numBits; i++ {
		bit := d.ReceiveBit()
		shift := numBits - 1 - i

		result |= Data(bit) << shift
	}

	return result
}

// ReceiveAck receives one bit and interprets it as a handshake answer:
// bit 0 is ACK, bit 1 is NAK.
func (d *Driver) ReceiveAck() Acknowledgment {
	if d.ReceiveBit() == 0 {
		return ACK
	}

	return NAK
}

// --- Transmit ---

// TransmitStartBit drives the start-bit pulse: high for the start-bit high
// phase, then low for the remainder of the start-bit period.
func (d *Driver) TransmitStartBit() {
	d.tx.Set(true)
	d.clock.Sleep(d.timing.StartBitHigh)

	d.tx.Set(false)
	d.clock.Sleep(d.timing.StartBitPeriod - d.timing.StartBitHigh)
}

// TransmitBit drives one data-bit pulse. The total period is constant for
// both bit values; only the high/low split differs.
func (d *Driver) TransmitBit(bit Bit) {
	highDuration := d.timing.Bit0High
	if bit != 0 {
		highDuration = d.timing.Bit1High
	}

	d.tx.Set(true)
	d.clock.Sleep(highDuration)

	d.tx.Set(false)
	d.clock.Sleep(d.timing.BitPeriod - highDuration)
}

// TransmitBits transmits the low numBits bits of value, most-significant
// bit first.
func (d *Driver) TransmitBits(value Data, numBits int) {
	for i := 0; i < numBits; i++ {
		position := numBits - 1 - i
		bit := Bit(value >> position & 1)

		d.TransmitBit(bit)
	}
}

// SendAck transmits a handshake answer: bit 0 for ACK, bit 1 for NAK.
func (d *Driver) SendAck(ack Acknowledgment) {
	if ack == ACK {
		d.TransmitBit(0)
		return
	}

	d.TransmitBit(1)
}

// --- Pulse measurement ---

// measurePulse blocks until the bus rises, timestamps the rise, blocks until
// it falls and returns the elapsed high duration.
func (d *Driver) measurePulse() time.Duration {
	d.waitBusHigh()
	startTime := d.clock.Now()

	d.waitBusLow()
	stopTime := d.clock.Now()

	return stopTime - startTime
}

// decodeBit maps a measured high duration to the nearer of the two data-bit
// reference widths. The bit-1 distance is compared strictly first, so an
// exact midpoint decodes to 0.
func (d *Driver) decodeBit(highDuration time.Duration) Bit {
	diff0 := absDuration(highDuration - d.timing.Bit0High)
	diff1 := absDuration(highDuration - d.timing.Bit1High)

	if diff1 < diff0 {
		return 1
	}

	return 0
}

func (d *Driver) waitBusLow() {
	for d.IsBusHigh() {
	}
}

func (d *Driver) waitBusHigh() {
	for d.IsBusLow() {
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
