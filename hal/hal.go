// Package hal defines the minimal hardware abstraction the IEBus codec is
// written against: a digital pin and a microsecond-resolution clock.
//
// The codec performs software-timed pulse generation and measurement, so both
// collaborators must be cheap to call in a tight busy-poll loop. On real
// hardware these map directly to a GPIO register read/write and a free-running
// microsecond counter (see the mcu subpackage); on a host they are provided by
// the deterministic simulator in the sim subpackage.
package hal

import "time"

// Pin is a single digital GPIO line.
//
// Electrical setup (direction, pull resistors) is the implementation's
// concern and happens at construction time; the codec only ever reads and
// drives a configured pin.
type Pin interface {
	// Set drives the pin high (true) or low (false).
	Set(high bool)
	// Get returns the instantaneous level of the pin.
	Get() bool
}

// Clock is a monotonic time source with a busy-grade delay primitive.
//
// Now must be monotonic and of microsecond granularity or better; the codec
// measures pulse widths as differences of consecutive Now readings. Sleep
// must not hand control to a cooperative scheduler with coarse wakeup
// granularity, because the codec's decode tolerance is a few microseconds.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed origin.
	Now() time.Duration
	// Sleep blocks for at least d.
	Sleep(d time.Duration)
}
