package iebus

import (
	"fmt"
	"time"

	"github.com/arloliu/go-iebus/hal"
	"github.com/arloliu/go-iebus/logger"
)

// Controller is the IEBus frame controller: it structures the bit codec's
// single-bit and multi-bit primitives into complete protocol frames and owns
// the address-matching and per-field parity/handshake policy.
//
// A Controller is bound to one fixed 12-bit node address for its lifetime.
// ReadMessage and WriteMessage run to completion (or abort) within the
// calling goroutine and must not be invoked concurrently against the same
// instance: the bus and pins are a single shared physical resource with no
// internal locking.
type Controller struct {
	address Address
	drv     *Driver
	clock   hal.Clock
	logger  logger.Logger
}

// NewController creates a frame controller from the configuration.
func NewController(cfg *Config) *Controller {
	return &Controller{
		address: cfg.address,
		drv:     NewDriver(cfg),
		clock:   cfg.clock,
		logger:  cfg.logger,
	}
}

// Address returns the local 12-bit node address.
func (c *Controller) Address() Address {
	return c.address
}

// Enable powers the bus transmitter.
func (c *Controller) Enable() {
	c.drv.Enable()
}

// Disable powers down the bus transmitter.
func (c *Controller) Disable() {
	c.drv.Disable()
}

// IsEnabled reports whether the bus transmitter is powered.
func (c *Controller) IsEnabled() bool {
	return c.drv.IsEnabled()
}

// ReadMessage receives one complete frame from the bus.
//
// The read is a strict linear pass over the frame fields. Any field-level
// failure aborts the whole read and discards all partial state; no partial
// message is ever returned. ErrNoStartBit is the normal "nothing to
// receive" outcome and should not be treated as a fault by callers.
//
// When a ForDevice frame addresses this node and the transmitting side
// requests an answer, the controller acknowledges each valid field with ACK
// and rejects an invalid one with NAK before aborting.
//
// ReadMessage blocks until a pulse arrives; a silent bus blocks indefinitely.
func (c *Controller) ReadMessage() (*Message, error) {
	if !c.IsEnabled() {
		c.logger.Error("iebus: controller is disabled")
		return nil, ErrNotEnabled
	}

	if !c.drv.ReceiveStartBit() {
		return nil, ErrNoStartBit
	}

	msg := &Message{}

	if c.drv.ReceiveBit() == 0 {
		msg.Broadcast = Broadcast
	} else {
		msg.Broadcast = ForDevice
	}

	// The master address is the one field without a handshake exchange:
	// parity is verified, but no node answers.
	master := c.drv.ReceiveBits(MasterAddressBits)
	msg.Master = Address(master)

	parityBit := c.drv.ReceiveBit()
	if !checkParity(master, MasterAddressBits, parityBit) {
		c.logger.Warn("iebus: master address parity error", "master", msg.Master)
		return nil, fmt.Errorf("%w: master address", ErrParity)
	}

	err := c.receiveField(msg, SlaveAddressBits, "slave address", func(v Data) {
		msg.Slave = Address(v)
	})
	if err != nil {
		return nil, err
	}

	err = c.receiveField(msg, ControlBits, "control", func(v Data) {
		msg.Control = byte(v)
	})
	if err != nil {
		return nil, err
	}

	var dataLength int

	err = c.receiveField(msg, DataLengthBits, "data length", func(v Data) {
		dataLength = int(v)
	})
	if err != nil {
		return nil, err
	}

	// Wire length 0 denotes the maximum payload of 256 bytes.
	if dataLength == 0 {
		dataLength = MaxDataLength
	}

	msg.Data = make([]byte, dataLength)

	for i := range msg.Data {
		name := fmt.Sprintf("data byte %d", i)

		err = c.receiveField(msg, DataByteBits, name, func(v Data) {
			msg.Data[i] = byte(v)
		})
		if err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// WriteMessage transmits one complete frame onto the bus.
//
// It waits for the bus to become free, transmits the start bit and the
// frame fields in order, and waits for a handshake answer after every field
// except the master address. The first NAK aborts the write; transmission
// never continues past a rejected field. Retransmission is the caller's
// decision, invoked as a fresh call.
//
// The handshake wait is unconditional, Broadcast frames included;
// conforming peers expect this slot on the wire.
func (c *Controller) WriteMessage(msg *Message) error {
	if !c.IsEnabled() {
		c.logger.Error("iebus: controller is disabled")
		return ErrNotEnabled
	}

	if err := msg.Validate(); err != nil {
		return err
	}

	for !c.drv.IsBusFree() {
		c.clock.Sleep(time.Microsecond)
	}

	c.drv.TransmitStartBit()

	if msg.Broadcast == Broadcast {
		c.drv.TransmitBit(0)
	} else {
		c.drv.TransmitBit(1)
	}

	// Master address: parity only, no handshake slot.
	c.drv.TransmitBits(Data(msg.Master), MasterAddressBits)
	c.drv.TransmitBit(Parity(Data(msg.Master), MasterAddressBits))

	if err := c.transmitField(Data(msg.Slave), SlaveAddressBits, "slave address"); err != nil {
		return err
	}

	if err := c.transmitField(Data(msg.Control), ControlBits, "control"); err != nil {
		return err
	}

	// A 256-byte payload goes on the wire as length 0.
	wireLength := Data(len(msg.Data) & 0xFF)
	if err := c.transmitField(wireLength, DataLengthBits, "data length"); err != nil {
		return err
	}

	for i, b := range msg.Data {
		name := fmt.Sprintf("data byte %d", i)

		if err := c.transmitField(Data(b), DataByteBits, name); err != nil {
			return err
		}
	}

	return nil
}

// receiveField receives one frame field following the common per-field
// pattern: value bits, parity bit, handshake bit.
//
// store is called with the raw value before the handshake is evaluated, so
// the slave-address field participates in its own addressing decision. This
// node answers the handshake only when the transmitting side requested an
// answer, the frame is ForDevice and the received slave address matches the
// local address; on parity failure an answering node sends NAK before the
// read aborts, otherwise it sends ACK.
func (c *Controller) receiveField(msg *Message, numBits int, name string, store func(Data)) error {
	value := c.drv.ReceiveBits(numBits)
	store(value)

	parityBit := c.drv.ReceiveBit()
	parityValid := checkParity(value, numBits, parityBit)

	needAnswer := c.drv.ReceiveAck() == ACK
	isForDevice := msg.Broadcast == ForDevice
	isForThisDevice := msg.Slave == c.address
	answer := needAnswer && isForDevice && isForThisDevice

	if !parityValid {
		if answer {
			c.drv.SendAck(NAK)
		}

		c.logger.Warn("iebus: field parity error", "field", name, "master", msg.Master, "slave", msg.Slave)

		return fmt.Errorf("%w: %s", ErrParity, name)
	}

	if answer {
		c.drv.SendAck(ACK)
	}

	return nil
}

// transmitField transmits one frame field (value bits + parity bit), then
// waits for and interprets the peer's handshake answer. A NAK aborts the
// write immediately.
func (c *Controller) transmitField(value Data, numBits int, name string) error {
	c.drv.TransmitBits(value, numBits)
	c.drv.TransmitBit(Parity(value, numBits))

	if c.drv.ReceiveAck() == NAK {
		c.logger.Error("iebus: field not acknowledged", "field", name)
		return fmt.Errorf("%w: %s", ErrNak, name)
	}

	return nil
}
