//go:build tinygo

// Package mcu provides machine-backed Pin and Clock implementations for
// running the IEBus codec on microcontrollers under TinyGo.
//
// The package mirrors the electrical bootstrap of a typical IEBus
// transceiver hookup: the receive line is a plain digital input, and the
// transmit and output-enable lines are push-pull outputs initialized low so
// the bus is released until the controller is enabled.
package mcu

import (
	"machine"
	"time"
)

// Pin adapts a machine.Pin to the codec's pin interface.
type Pin struct {
	pin machine.Pin
}

// NewInputPin configures the pin as a digital input and returns it.
// Use for the bus receive line.
func NewInputPin(pin machine.Pin) *Pin {
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})

	return &Pin{pin: pin}
}

// NewOutputPin configures the pin as a digital output driven low and
// returns it. Use for the transmit and output-enable lines.
func NewOutputPin(pin machine.Pin) *Pin {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()

	return &Pin{pin: pin}
}

func (p *Pin) Set(high bool) {
	p.pin.Set(high)
}

func (p *Pin) Get() bool {
	return p.pin.Get()
}

// Clock is a monotonic microsecond clock with a busy-spin delay.
//
// Sleep spins instead of yielding to the scheduler: the codec's pulse
// timing cannot tolerate the wakeup granularity of a cooperative sleep.
type Clock struct {
	origin time.Time
}

// NewClock creates a clock anchored at the current time.
func NewClock() *Clock {
	return &Clock{origin: time.Now()}
}

func (c *Clock) Now() time.Duration {
	return time.Since(c.origin)
}

func (c *Clock) Sleep(d time.Duration) {
	target := time.Since(c.origin) + d
	for time.Since(c.origin) < target {
	}
}
