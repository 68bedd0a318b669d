package iebus

import (
	"sync/atomic"
)

// MonitorMetrics contains atomic metrics for a bus Monitor.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type MonitorMetrics struct {
	// FrameRecvCount indicates the number of frames received and queued
	// for dispatch.
	FrameRecvCount atomic.Uint64
	// NoFrameCount indicates the number of read attempts that ended
	// without a valid start bit. This is the normal idle outcome, counted
	// for visibility only.
	NoFrameCount atomic.Uint64
	// ParityErrCount indicates the number of reads aborted by a field
	// parity error.
	ParityErrCount atomic.Uint64
	// DispatchCount indicates the number of frames delivered to a handler.
	DispatchCount atomic.Uint64
}

func (m *MonitorMetrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *MonitorMetrics) incNoFrameCount() {
	m.NoFrameCount.Add(1)
}

func (m *MonitorMetrics) incParityErrCount() {
	m.ParityErrCount.Add(1)
}

func (m *MonitorMetrics) incDispatchCount() {
	m.DispatchCount.Add(1)
}
