package iebus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-iebus/hal/sim"
)

// waitMessage receives one dispatched frame or fails the test.
func waitMessage(t *testing.T, ch <-chan *Message) *Message {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a dispatched frame")
		return nil
	}
}

// releaseReadLoop unblocks a read loop stuck waiting for a start bit on a
// silent bus, so the goroutine can observe the closed monitor and exit.
func releaseReadLoop(bus *sim.Bus) {
	bus.Load(100 * time.Microsecond)
}

func TestMonitor_DispatchToHandler(t *testing.T) {
	ctrl, bus := newTestController(t, 0x880)
	m := NewMonitor(ctrl)

	received := make(chan *Message, 2)
	m.Watch(0x110, func(msg *Message) { received <- msg })

	first := testMessage(0x880)
	second := testMessage(0x880)
	second.Data = []byte{0x01, 0x02}

	tm := DefaultTiming()
	bus.Load(framePulses(tm, first)...)
	bus.Load(framePulses(tm, second)...)

	require.NoError(t, m.Start())
	defer func() {
		require.NoError(t, m.Close())
		releaseReadLoop(bus)
	}()

	assert.Equal(t, first, waitMessage(t, received))
	assert.Equal(t, second, waitMessage(t, received))

	metrics := m.Metrics()
	assert.Eventually(t, func() bool {
		return metrics.FrameRecvCount.Load() == 2 && metrics.DispatchCount.Load() == 2
	}, 5*time.Second, time.Millisecond)
}

func TestMonitor_CatchAll(t *testing.T) {
	ctrl, bus := newTestController(t, 0x880)
	m := NewMonitor(ctrl)

	dedicated := make(chan *Message, 1)
	catchAll := make(chan *Message, 2)

	m.Watch(0x222, func(msg *Message) { dedicated <- msg })
	m.WatchAll(func(msg *Message) { catchAll <- msg })

	fromWatched := testMessage(0x880)
	fromWatched.Master = 0x222
	fromOther := testMessage(0x880)
	fromOther.Master = 0x333

	tm := DefaultTiming()
	bus.Load(framePulses(tm, fromWatched)...)
	bus.Load(framePulses(tm, fromOther)...)

	require.NoError(t, m.Start())
	defer func() {
		require.NoError(t, m.Close())
		releaseReadLoop(bus)
	}()

	// The dedicated handler takes precedence; only the unmatched master
	// falls through to the catch-all.
	assert.Equal(t, fromWatched, waitMessage(t, dedicated))
	assert.Equal(t, fromOther, waitMessage(t, catchAll))
	assert.Empty(t, catchAll)
}

func TestMonitor_Unwatch(t *testing.T) {
	ctrl, bus := newTestController(t, 0x880)
	m := NewMonitor(ctrl)

	dedicated := make(chan *Message, 1)
	catchAll := make(chan *Message, 1)

	m.Watch(0x110, func(msg *Message) { dedicated <- msg })
	m.Unwatch(0x110)
	m.WatchAll(func(msg *Message) { catchAll <- msg })

	bus.Load(framePulses(DefaultTiming(), testMessage(0x880))...)

	require.NoError(t, m.Start())
	defer func() {
		require.NoError(t, m.Close())
		releaseReadLoop(bus)
	}()

	waitMessage(t, catchAll)
	assert.Empty(t, dedicated)
}

func TestMonitor_ErrorMetrics(t *testing.T) {
	ctrl, bus := newTestController(t, 0x880)
	m := NewMonitor(ctrl)

	tm := DefaultTiming()

	// One pulse outside the start-bit window, then a frame whose master
	// address parity is inverted.
	bus.Load(100 * time.Microsecond)

	pulses := []time.Duration{tm.StartBitHigh, bitPulse(tm, 1)}
	pulses = appendBits(pulses, tm, 0x110, MasterAddressBits)
	pulses = append(pulses, bitPulse(tm, Parity(0x110, MasterAddressBits)^1))
	bus.Load(pulses...)

	require.NoError(t, m.Start())
	defer func() {
		require.NoError(t, m.Close())
		releaseReadLoop(bus)
	}()

	metrics := m.Metrics()
	assert.Eventually(t, func() bool {
		return metrics.NoFrameCount.Load() == 1 && metrics.ParityErrCount.Load() == 1
	}, 5*time.Second, time.Millisecond)
	assert.Zero(t, metrics.FrameRecvCount.Load())
}

func TestMonitor_StartErrors(t *testing.T) {
	t.Run("controller disabled", func(t *testing.T) {
		cfg, _ := newTestBusConfig(t, 0x880)
		m := NewMonitor(NewController(cfg))

		require.ErrorIs(t, m.Start(), ErrNotEnabled)
	})

	t.Run("already running", func(t *testing.T) {
		ctrl, bus := newTestController(t, 0x880)
		m := NewMonitor(ctrl)

		require.NoError(t, m.Start())
		defer func() {
			require.NoError(t, m.Close())
			releaseReadLoop(bus)
		}()

		require.ErrorIs(t, m.Start(), ErrMonitorRunning)
	})

	t.Run("closed", func(t *testing.T) {
		ctrl, _ := newTestController(t, 0x880)
		m := NewMonitor(ctrl)

		require.NoError(t, m.Close())
		require.ErrorIs(t, m.Start(), ErrMonitorClosed)
		require.ErrorIs(t, m.Close(), ErrMonitorClosed)
	})
}

func TestMonitor_ReadLoopStopsWhenDisabled(t *testing.T) {
	ctrl, bus := newTestController(t, 0x880)
	m := NewMonitor(ctrl)

	require.NoError(t, m.Start())

	// Disabling mid-run makes the next read attempt fail terminally; a junk
	// pulse ends the in-flight start-bit wait so the loop gets there.
	ctrl.Disable()
	releaseReadLoop(bus)

	metrics := m.Metrics()
	assert.Eventually(t, func() bool {
		return metrics.NoFrameCount.Load() >= 1
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, m.Close())
}
