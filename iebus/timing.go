package iebus

import (
	"fmt"
	"time"
)

// Standard IEBus pulse timing. A bit is a high-to-low pulse within a fixed
// period; the high-phase width carries the value. The start bit uses a much
// wider high phase so it can never be mistaken for a data bit.
const (
	DefaultStartBitHigh      = 171 * time.Microsecond
	DefaultStartBitPeriod    = 190 * time.Microsecond
	DefaultStartBitTolerance = 20 * time.Microsecond

	DefaultBit0High  = 33 * time.Microsecond
	DefaultBit1High  = 20 * time.Microsecond
	DefaultBitPeriod = 39 * time.Microsecond
)

// Timing is the immutable set of pulse-width constants shared by the encode
// and decode paths. Keeping both paths on one value guarantees that a frame
// transmitted with a given profile decodes symmetrically under the same
// profile.
//
// All durations are on-the-wire times; receivers self-synchronize on every
// bit boundary, so only the high-phase widths need to be distinguishable.
type Timing struct {
	// StartBitHigh is the high-phase duration of the start bit.
	StartBitHigh time.Duration
	// StartBitPeriod is the total duration of the start bit (high + low).
	StartBitPeriod time.Duration
	// StartBitTolerance is the accepted deviation around StartBitHigh when
	// validating a received start bit.
	StartBitTolerance time.Duration

	// Bit0High is the high-phase duration of a logical 0 data bit.
	Bit0High time.Duration
	// Bit1High is the high-phase duration of a logical 1 data bit.
	Bit1High time.Duration
	// BitPeriod is the total duration of a data bit, identical for both
	// values. It also sets the minimum idle time for bus-free detection.
	BitPeriod time.Duration
}

// DefaultTiming returns the standard IEBus timing profile.
func DefaultTiming() Timing {
	return Timing{
		StartBitHigh:      DefaultStartBitHigh,
		StartBitPeriod:    DefaultStartBitPeriod,
		StartBitTolerance: DefaultStartBitTolerance,
		Bit0High:          DefaultBit0High,
		Bit1High:          DefaultBit1High,
		BitPeriod:         DefaultBitPeriod,
	}
}

// Validate checks the internal consistency of the profile.
//
// The decode rules require Bit1High < Bit0High < BitPeriod, the start-bit
// high phase to fit in its period, and the start-bit acceptance window to
// stay clear of zero.
func (t Timing) Validate() error {
	if t.Bit1High <= 0 || t.Bit0High <= 0 || t.BitPeriod <= 0 {
		return fmt.Errorf("%w: data bit durations must be positive", ErrInvalidTiming)
	}
	if t.Bit1High >= t.Bit0High {
		return fmt.Errorf("%w: bit-1 high %v must be shorter than bit-0 high %v", ErrInvalidTiming, t.Bit1High, t.Bit0High)
	}
	if t.Bit0High >= t.BitPeriod {
		return fmt.Errorf("%w: bit-0 high %v must be shorter than bit period %v", ErrInvalidTiming, t.Bit0High, t.BitPeriod)
	}
	if t.StartBitHigh <= 0 || t.StartBitPeriod <= 0 {
		return fmt.Errorf("%w: start bit durations must be positive", ErrInvalidTiming)
	}
	if t.StartBitHigh >= t.StartBitPeriod {
		return fmt.Errorf("%w: start bit high %v must be shorter than start bit period %v", ErrInvalidTiming, t.StartBitHigh, t.StartBitPeriod)
	}
	if t.StartBitTolerance < 0 || t.StartBitTolerance >= t.StartBitHigh {
		return fmt.Errorf("%w: start bit tolerance %v out of range [0, %v)", ErrInvalidTiming, t.StartBitTolerance, t.StartBitHigh)
	}
	// The start bit must stay distinguishable from the widest data bit even
	// at the lower edge of its acceptance window.
	if t.StartBitHigh-t.StartBitTolerance <= t.Bit0High {
		return fmt.Errorf("%w: start bit window overlaps data bit widths", ErrInvalidTiming)
	}

	return nil
}
