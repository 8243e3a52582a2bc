package godive

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds.
// Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks transfer-level statistics for a single device handle:
// bytes moved, retries reported through RecordRetry, and per-operation
// latency. This is distinct from the event bus (events.go), which reports
// user-facing progress; Metrics is for internal observability.
type Metrics struct {
	ReadOps  atomic.Uint64 // device.Read calls
	WriteOps atomic.Uint64 // device.Write calls
	DumpOps  atomic.Uint64 // device.Dump calls

	ReadBytes  atomic.Uint64
	WriteBytes atomic.Uint64
	DumpBytes  atomic.Uint64

	ReadErrors  atomic.Uint64
	WriteErrors atomic.Uint64
	DumpErrors  atomic.Uint64

	// TransferRetries counts retries reported through RecordRetry (or an
	// Observer's ObserveRetry). The framers in internal/framing do not
	// report their retries, so a Device's count stays zero.
	TransferRetries atomic.Uint64

	// DivesExtracted counts dives streamed out of a completed foreach.
	DivesExtracted atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordRead records a device.Read call.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite records a device.Write call.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordDump records one device.Dump call (the whole-memory-image pull).
func (m *Metrics) RecordDump(bytes uint64, latencyNs uint64, success bool) {
	m.DumpOps.Add(1)
	if success {
		m.DumpBytes.Add(bytes)
	} else {
		m.DumpErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordRetry records one NAK/timeout retry spent inside a framer's
// transfer loop.
func (m *Metrics) RecordRetry() {
	m.TransferRetries.Add(1)
}

// RecordDive records one dive streamed out of foreach.
func (m *Metrics) RecordDive() {
	m.DivesExtracted.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the device as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	ReadOps  uint64
	WriteOps uint64
	DumpOps  uint64

	ReadBytes  uint64
	WriteBytes uint64
	DumpBytes  uint64

	ReadErrors  uint64
	WriteErrors uint64
	DumpErrors  uint64

	TransferRetries uint64
	DivesExtracted  uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	ReadIOPS      float64
	WriteIOPS     float64
	ReadThroughput  float64
	WriteThroughput float64
	TotalOps      uint64
	TotalBytes    uint64
	ErrorRate     float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ReadOps:         m.ReadOps.Load(),
		WriteOps:        m.WriteOps.Load(),
		DumpOps:         m.DumpOps.Load(),
		ReadBytes:       m.ReadBytes.Load(),
		WriteBytes:      m.WriteBytes.Load(),
		DumpBytes:       m.DumpBytes.Load(),
		ReadErrors:      m.ReadErrors.Load(),
		WriteErrors:     m.WriteErrors.Load(),
		DumpErrors:      m.DumpErrors.Load(),
		TransferRetries: m.TransferRetries.Load(),
		DivesExtracted:  m.DivesExtracted.Load(),
	}

	snap.TotalOps = snap.ReadOps + snap.WriteOps + snap.DumpOps
	snap.TotalBytes = snap.ReadBytes + snap.WriteBytes + snap.DumpBytes

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.ReadIOPS = float64(snap.ReadOps) / uptimeSeconds
		snap.WriteIOPS = float64(snap.WriteOps) / uptimeSeconds
		snap.ReadThroughput = float64(snap.ReadBytes) / uptimeSeconds
		snap.WriteThroughput = float64(snap.WriteBytes) / uptimeSeconds
	}

	totalErrors := snap.ReadErrors + snap.WriteErrors + snap.DumpErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.ReadOps.Store(0)
	m.WriteOps.Store(0)
	m.DumpOps.Store(0)
	m.ReadBytes.Store(0)
	m.WriteBytes.Store(0)
	m.DumpBytes.Store(0)
	m.ReadErrors.Store(0)
	m.WriteErrors.Store(0)
	m.DumpErrors.Store(0)
	m.TransferRetries.Store(0)
	m.DivesExtracted.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, implemented by callers
// that want to forward transfer statistics into their own monitoring.
type Observer interface {
	ObserveRead(bytes uint64, latencyNs uint64, success bool)
	ObserveWrite(bytes uint64, latencyNs uint64, success bool)
	ObserveDump(bytes uint64, latencyNs uint64, success bool)
	ObserveRetry()
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveRead(uint64, uint64, bool) {}
func (NoOpObserver) ObserveWrite(uint64, uint64, bool) {}
func (NoOpObserver) ObserveDump(uint64, uint64, bool) {}
func (NoOpObserver) ObserveRetry()                     {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveRead(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordRead(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveWrite(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordWrite(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveDump(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordDump(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveRetry() {
	o.metrics.RecordRetry()
}

var _ Observer = NoOpObserver{}
var _ Observer = (*MetricsObserver)(nil)
