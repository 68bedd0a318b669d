// Package sim provides a deterministic, host-testable simulation of a
// single-wire bus for the software-timed codec.
//
// The simulator replaces real time with a virtual clock: every receive-pin
// poll advances the clock by a fixed tick and every Sleep advances it by the
// requested duration. Pulse widths are therefore measured exactly, making
// decode-boundary tests reproducible to the nanosecond.
//
// The codec measures only rise-to-fall high durations, so a bus session is
// fully described by an ordered list of high-pulse widths. The simulator
// plays such a list back on the receive pin, records the widths driven on
// the transmit pin, and can inject scripted handshake answers the way an
// addressed peer on a real bus would.
//
// Playback progresses only while the receive pin is being polled. A node
// that stops polling to transmit (e.g. to answer a handshake) finds the
// next pulse waiting when it resumes, instead of having missed it — the
// virtual wire waits for its listener, which keeps replayed sessions
// aligned without modeling two live nodes in lockstep.
package sim

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTick is the virtual time consumed by one receive-pin poll.
	DefaultTick = time.Microsecond

	// pulseLead is the polled idle time between dispensing a playback
	// pulse and its rising edge.
	pulseLead = 2 * time.Microsecond
)

// pulseRec is one high pulse on the virtual wire.
type pulseRec struct {
	start time.Duration
	width time.Duration
}

// Bus is a simulated single-wire bus with one attached node.
//
// All methods are safe for concurrent use, so a test goroutine may load
// pulses or inspect transcripts while the codec's goroutine busy-polls.
type Bus struct {
	mu   sync.Mutex
	now  time.Duration
	tick time.Duration

	// Receive-side playback. The active pulse is consumed poll by poll:
	// leadLeft ticks of idle, then highLeft ticks of high level.
	playQueue   []time.Duration
	pulseActive bool
	leadLeft    time.Duration
	highLeft    time.Duration

	// Scripted handshake responder.
	responses       []time.Duration
	defaultResponse time.Duration
	txSinceResponse bool

	// Transmit-side transcript.
	txLevel bool
	txRise  time.Duration
	txSent  []pulseRec

	// Chronological record of everything that appeared on the wire
	// (transmitted pulses and responder pulses).
	wire []pulseRec

	enableLevel bool
}

// NewBus creates an idle simulated bus.
func NewBus() *Bus {
	return &Bus{tick: DefaultTick}
}

// SetTick changes the virtual time consumed by one receive-pin poll.
// Sub-microsecond ticks allow pulse widths off the microsecond grid to be
// measured exactly.
func (b *Bus) SetTick(tick time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tick = tick
}

// Now returns the current virtual time.
func (b *Bus) Now() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.now
}

// --- Receive-side playback ---

// Load appends high-pulse widths to the receive playback queue. A queued
// pulse begins shortly after the receive pin is polled while the wire is
// idle; inter-pulse gaps are not significant to the codec.
func (b *Bus) Load(widths ...time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.playQueue = append(b.playQueue, widths...)
}

// PendingPulses returns the number of queued playback pulses not yet begun.
func (b *Bus) PendingPulses() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.playQueue)
}

// --- Handshake responder ---

// RespondWith queues one scripted responder pulse of the given high width.
// Scripted responses are consumed in order, before the default response.
func (b *Bus) RespondWith(width time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.responses = append(b.responses, width)
}

// AutoRespond sets the default responder pulse width, used whenever the
// script is exhausted. A width of 0 leaves the wire silent.
//
// The responder fires when the receive pin is polled while the wire is idle
// and at least one transmit pulse has completed since the last response —
// which is exactly when a transmitting codec starts listening for a
// handshake answer.
func (b *Bus) AutoRespond(width time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.defaultResponse = width
}

// --- Transcripts ---

// SentPulses returns the high-pulse widths driven on the transmit pin so far.
func (b *Bus) SentPulses() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	widths := make([]time.Duration, len(b.txSent))
	for i, p := range b.txSent {
		widths[i] = p.width
	}

	return widths
}

// WirePulses returns every high pulse that appeared on the wire, transmitted
// and responder pulses merged in chronological order. Feeding this recording
// into a second bus's Load replays the session for a receiving codec.
func (b *Bus) WirePulses() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	recs := make([]pulseRec, len(b.wire))
	copy(recs, b.wire)
	sort.Slice(recs, func(i, j int) bool { return recs[i].start < recs[j].start })

	widths := make([]time.Duration, len(recs))
	for i, p := range recs {
		widths[i] = p.width
	}

	return widths
}

// EnableLevel returns the current level of the output-enable pin.
func (b *Bus) EnableLevel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.enableLevel
}

// --- Pins and clock ---

// RxPin returns the receive pin of the attached node.
func (b *Bus) RxPin() *RxPin { return &RxPin{bus: b} }

// TxPin returns the transmit pin of the attached node.
func (b *Bus) TxPin() *TxPin { return &TxPin{bus: b} }

// EnablePin returns the output-enable pin of the attached node.
func (b *Bus) EnablePin() *EnablePin { return &EnablePin{bus: b} }

// Clock returns the virtual clock of the bus.
func (b *Bus) Clock() *Clock { return &Clock{bus: b} }

// RxPin is the simulated receive pin. Each Get advances virtual time by one
// tick and reports the wire level from the playback schedule.
type RxPin struct {
	bus *Bus
}

// Set is a no-op; the receive pin is input-only.
func (p *RxPin) Set(high bool) {}

func (p *RxPin) Get() bool {
	return p.bus.pollRx()
}

// TxPin is the simulated transmit pin. Edge pairs are recorded as high
// pulses with their virtual timestamps.
type TxPin struct {
	bus *Bus
}

func (p *TxPin) Set(high bool) {
	p.bus.driveTx(high)
}

func (p *TxPin) Get() bool {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	return p.bus.txLevel
}

// EnablePin is the simulated output-enable pin.
type EnablePin struct {
	bus *Bus
}

func (p *EnablePin) Set(high bool) {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()

	p.bus.enableLevel = high
}

func (p *EnablePin) Get() bool {
	return p.bus.EnableLevel()
}

// Clock is the virtual clock. Sleep advances virtual time instantly.
type Clock struct {
	bus *Bus
}

func (c *Clock) Now() time.Duration {
	return c.bus.Now()
}

func (c *Clock) Sleep(d time.Duration) {
	c.bus.mu.Lock()
	defer c.bus.mu.Unlock()

	c.bus.now += d
}

// --- Wire mechanics ---

// pollRx samples the wire level, consumes one tick of the active playback
// pulse, and advances virtual time by one tick. When the wire is idle it
// dispenses the next playback pulse, or fires the handshake responder if
// one is owed.
func (b *Bus) pollRx() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pulseActive {
		if b.leadLeft > 0 {
			b.leadLeft -= b.tick
			b.now += b.tick

			return false
		}

		if b.highLeft > 0 {
			b.highLeft -= b.tick
			b.now += b.tick

			return true
		}

		b.pulseActive = false
	}

	if len(b.playQueue) > 0 {
		width := b.playQueue[0]
		b.playQueue = b.playQueue[1:]
		b.armPulse(width)
		b.leadLeft -= b.tick
		b.now += b.tick

		return false
	}

	if b.txSinceResponse {
		if width, ok := b.nextResponse(); ok {
			b.txSinceResponse = false
			b.armPulse(width)
			b.wire = append(b.wire, pulseRec{start: b.now, width: width})
			b.leadLeft -= b.tick
			b.now += b.tick

			return false
		}
	}

	b.now += b.tick

	return false
}

// armPulse stages a playback pulse: pulseLead of polled idle time followed
// by width of polled high time.
func (b *Bus) armPulse(width time.Duration) {
	b.pulseActive = true
	b.leadLeft = pulseLead
	b.highLeft = width
}

func (b *Bus) nextResponse() (time.Duration, bool) {
	if len(b.responses) > 0 {
		width := b.responses[0]
		b.responses = b.responses[1:]

		return width, true
	}

	if b.defaultResponse > 0 {
		return b.defaultResponse, true
	}

	return 0, false
}

// driveTx records a transmit edge at the current virtual time.
func (b *Bus) driveTx(high bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if high == b.txLevel {
		return
	}

	b.txLevel = high
	if high {
		b.txRise = b.now
		return
	}

	pulse := pulseRec{start: b.txRise, width: b.now - b.txRise}
	b.txSent = append(b.txSent, pulse)
	b.wire = append(b.wire, pulse)
	b.txSinceResponse = true
}
