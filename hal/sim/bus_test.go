package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollPulse polls the receive pin until a pulse begins and returns its high
// duration as seen through the polls. maxPolls bounds the idle wait.
func pollPulse(t *testing.T, bus *Bus, maxPolls int) time.Duration {
	t.Helper()

	rx := bus.RxPin()

	polls := 0
	for !rx.Get() {
		polls++
		require.Less(t, polls, maxPolls, "no pulse appeared on the wire")
	}

	// One high tick elapsed before the timestamp; the final low poll's tick
	// compensates for it, so the difference is the exact high duration.
	before := bus.Now()
	for rx.Get() {
	}

	return bus.Now() - before
}

func TestBus_Playback(t *testing.T) {
	bus := NewBus()
	bus.Load(10*time.Microsecond, 33*time.Microsecond)

	assert.Equal(t, 2, bus.PendingPulses())

	assert.Equal(t, 10*time.Microsecond, pollPulse(t, bus, 100))
	assert.Equal(t, 33*time.Microsecond, pollPulse(t, bus, 100))
	assert.Equal(t, 0, bus.PendingPulses())
}

func TestBus_SetTick(t *testing.T) {
	bus := NewBus()
	bus.SetTick(500 * time.Nanosecond)
	bus.Load(26500 * time.Nanosecond)

	rx := bus.RxPin()

	for polls := 0; polls < 100 && !rx.Get(); polls++ {
	}

	highs := 1
	for rx.Get() {
		highs++
	}

	assert.Equal(t, 53, highs, "26.5µs must span exactly 53 half-microsecond ticks")
}

func TestBus_ClockAdvances(t *testing.T) {
	bus := NewBus()
	clock := bus.Clock()

	start := clock.Now()
	clock.Sleep(33 * time.Microsecond)
	assert.Equal(t, 33*time.Microsecond, clock.Now()-start)

	// Each receive poll also consumes one tick.
	bus.RxPin().Get()
	assert.Equal(t, 33*time.Microsecond+DefaultTick, clock.Now()-start)
}

func TestBus_TxTranscript(t *testing.T) {
	bus := NewBus()
	tx := bus.TxPin()
	clock := bus.Clock()

	tx.Set(true)
	clock.Sleep(33 * time.Microsecond)
	tx.Set(false)
	clock.Sleep(6 * time.Microsecond)

	tx.Set(true)
	clock.Sleep(20 * time.Microsecond)
	tx.Set(false)

	want := []time.Duration{33 * time.Microsecond, 20 * time.Microsecond}
	assert.Equal(t, want, bus.SentPulses())
	assert.Equal(t, want, bus.WirePulses())
}

func TestBus_TxRedundantEdges(t *testing.T) {
	bus := NewBus()
	tx := bus.TxPin()
	clock := bus.Clock()

	tx.Set(false)
	tx.Set(true)
	tx.Set(true)
	clock.Sleep(20 * time.Microsecond)
	tx.Set(false)
	tx.Set(false)

	assert.Equal(t, []time.Duration{20 * time.Microsecond}, bus.SentPulses())
}

func TestBus_Responder(t *testing.T) {
	bus := NewBus()
	rx := bus.RxPin()
	tx := bus.TxPin()
	clock := bus.Clock()

	bus.RespondWith(20 * time.Microsecond)
	bus.AutoRespond(33 * time.Microsecond)

	// No response before any transmit pulse has completed.
	for i := 0; i < 50; i++ {
		assert.False(t, rx.Get())
	}

	tx.Set(true)
	clock.Sleep(33 * time.Microsecond)
	tx.Set(false)

	// The scripted response comes first, then the default kicks in after
	// each further transmit pulse.
	assert.Equal(t, 20*time.Microsecond, pollPulse(t, bus, 100))

	tx.Set(true)
	clock.Sleep(20 * time.Microsecond)
	tx.Set(false)

	assert.Equal(t, 33*time.Microsecond, pollPulse(t, bus, 100))

	// One response per transmit pulse: the wire goes silent again.
	for i := 0; i < 50; i++ {
		assert.False(t, rx.Get())
	}
}

func TestBus_WirePulses_ChronologicalOrder(t *testing.T) {
	bus := NewBus()
	tx := bus.TxPin()
	clock := bus.Clock()

	bus.AutoRespond(33 * time.Microsecond)

	tx.Set(true)
	clock.Sleep(20 * time.Microsecond)
	tx.Set(false)

	require.Equal(t, 20*time.Microsecond, pollPulse(t, bus, 100))

	tx.Set(true)
	clock.Sleep(33 * time.Microsecond)
	tx.Set(false)

	require.Equal(t, 33*time.Microsecond, pollPulse(t, bus, 100))

	want := []time.Duration{
		20 * time.Microsecond, // first transmit
		33 * time.Microsecond, // its response
		33 * time.Microsecond, // second transmit
		33 * time.Microsecond, // its response
	}
	assert.Equal(t, want, bus.WirePulses())
}

func TestBus_EnableLevel(t *testing.T) {
	bus := NewBus()
	pin := bus.EnablePin()

	assert.False(t, bus.EnableLevel())
	assert.False(t, pin.Get())

	pin.Set(true)
	assert.True(t, bus.EnableLevel())
	assert.True(t, pin.Get())

	pin.Set(false)
	assert.False(t, bus.EnableLevel())
}
