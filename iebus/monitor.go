package iebus

import (
	"errors"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-iebus/internal/queue"
	"github.com/arloliu/go-iebus/logger"
)

// Handler processes one received frame. Handlers run on the Monitor's
// dispatch goroutine, never on the bus read loop.
type Handler func(*Message)

// Monitor owns a Controller's read side: it runs the blocking ReadMessage
// loop on a dedicated goroutine and dispatches received frames to handlers
// registered per master address.
//
// Received frames pass through an unbounded lock-free queue between the
// read loop and the dispatch goroutine, so a slow handler never delays the
// next start-bit wait; bus timing does not pause for application code.
//
// The Monitor takes exclusive ownership of the Controller while running.
// In particular, WriteMessage must not be called on the same Controller
// while a Monitor is started, per the single-owning-goroutine rule.
type Monitor struct {
	ctrl    *Controller
	logger  logger.Logger
	metrics MonitorMetrics

	// handlers maps master addresses to their handler. Registration may
	// happen concurrently with dispatch.
	handlers *xsync.MapOf[Address, Handler]
	catchAll atomic.Pointer[Handler]

	pending queue.Queue[*Message]
	notify  chan struct{}
	done    chan struct{}

	running atomic.Bool
	closed  atomic.Bool
}

// NewMonitor creates a Monitor for the controller.
func NewMonitor(ctrl *Controller) *Monitor {
	return &Monitor{
		ctrl:     ctrl,
		logger:   ctrl.logger,
		handlers: xsync.NewMapOf[Address, Handler](),
		pending:  queue.NewLockFreeQueue[*Message](),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Watch registers a handler for frames sent by the given master address,
// replacing any previous handler for that address.
func (m *Monitor) Watch(master Address, handler Handler) {
	m.handlers.Store(master, handler)
}

// Unwatch removes the handler for the given master address.
func (m *Monitor) Unwatch(master Address) {
	m.handlers.Delete(master)
}

// WatchAll registers a catch-all handler for frames whose master address
// has no dedicated handler. A nil handler removes the catch-all.
func (m *Monitor) WatchAll(handler Handler) {
	if handler == nil {
		m.catchAll.Store(nil)
		return
	}

	m.catchAll.Store(&handler)
}

// Metrics returns the monitor's atomic counters.
func (m *Monitor) Metrics() *MonitorMetrics {
	return &m.metrics
}

// Start launches the read loop and the dispatch goroutine.
// The controller must already be enabled.
func (m *Monitor) Start() error {
	if m.closed.Load() {
		return ErrMonitorClosed
	}
	if !m.ctrl.IsEnabled() {
		return ErrNotEnabled
	}
	if !m.running.CompareAndSwap(false, true) {
		return ErrMonitorRunning
	}

	go m.readLoop()
	go m.dispatchLoop()

	return nil
}

// Close stops the dispatch goroutine and marks the monitor closed.
//
// The read loop observes the stop only between ReadMessage calls: if the
// bus is silent, the loop stays blocked waiting for a start bit until the
// next pulse arrives. That is the accepted cost of the timing model; bus
// recovery is external.
func (m *Monitor) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrMonitorClosed
	}

	close(m.done)

	return nil
}

// readLoop pulls frames off the bus for the lifetime of the monitor.
func (m *Monitor) readLoop() {
	for {
		select {
		case <-m.done:
			return
		default:
		}

		msg, err := m.ctrl.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, ErrNoStartBit):
				m.metrics.incNoFrameCount()
			case errors.Is(err, ErrParity):
				m.metrics.incParityErrCount()
			case errors.Is(err, ErrNotEnabled):
				m.logger.Error("iebus: monitor read loop stopped, controller disabled")
				return
			}

			continue
		}

		m.metrics.incFrameRecvCount()
		m.pending.Enqueue(msg)

		select {
		case m.notify <- struct{}{}:
		default:
		}
	}
}

// dispatchLoop drains the pending queue and runs handlers.
func (m *Monitor) dispatchLoop() {
	for {
		select {
		case <-m.done:
			m.drain()
			return
		case <-m.notify:
			m.drain()
		}
	}
}

func (m *Monitor) drain() {
	for {
		msg, ok := m.pending.Dequeue()
		if !ok {
			return
		}

		m.dispatch(msg)
	}
}

func (m *Monitor) dispatch(msg *Message) {
	if handler, ok := m.handlers.Load(msg.Master); ok {
		handler(msg)
		m.metrics.incDispatchCount()

		return
	}

	if catchAll := m.catchAll.Load(); catchAll != nil {
		(*catchAll)(msg)
		m.metrics.incDispatchCount()

		return
	}

	m.logger.Debug("iebus: unhandled frame", "message", msg)
}
