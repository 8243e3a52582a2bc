package godive

import (
	"testing"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("expected 0 initial ops, got %d", snap.TotalOps)
	}

	m.RecordRead(1024, 1_000_000, true)
	m.RecordWrite(2048, 2_000_000, true)
	m.RecordRead(512, 500_000, false)
	m.RecordDump(16384, 50_000_000, true)
	m.RecordRetry()
	m.RecordRetry()
	m.RecordDive()

	snap = m.Snapshot()

	if snap.ReadOps != 2 {
		t.Errorf("expected 2 read ops, got %d", snap.ReadOps)
	}
	if snap.WriteOps != 1 {
		t.Errorf("expected 1 write op, got %d", snap.WriteOps)
	}
	if snap.DumpOps != 1 {
		t.Errorf("expected 1 dump op, got %d", snap.DumpOps)
	}
	if snap.ReadBytes != 1024 {
		t.Errorf("expected 1024 read bytes, got %d", snap.ReadBytes)
	}
	if snap.DumpBytes != 16384 {
		t.Errorf("expected 16384 dump bytes, got %d", snap.DumpBytes)
	}
	if snap.ReadErrors != 1 {
		t.Errorf("expected 1 read error, got %d", snap.ReadErrors)
	}
	if snap.TransferRetries != 2 {
		t.Errorf("expected 2 transfer retries, got %d", snap.TransferRetries)
	}
	if snap.DivesExtracted != 1 {
		t.Errorf("expected 1 dive extracted, got %d", snap.DivesExtracted)
	}

	expectedErrorRate := float64(1) / float64(4) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsLatencyPercentiles(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 100; i++ {
		latency := uint64(1_000_000) // 1ms
		if i >= 99 {
			latency = 5_000_000_000 // 5s outlier
		}
		m.RecordRead(1, latency, true)
	}

	snap := m.Snapshot()
	if snap.LatencyP50Ns == 0 {
		t.Error("expected non-zero p50 latency")
	}
	if snap.LatencyP999Ns < snap.LatencyP50Ns {
		t.Error("expected p99.9 latency to be >= p50 latency")
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordRead(100, 1000, true)
	m.RecordRetry()

	m.Reset()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("expected 0 ops after reset, got %d", snap.TotalOps)
	}
	if snap.TransferRetries != 0 {
		t.Errorf("expected 0 retries after reset, got %d", snap.TransferRetries)
	}
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveRead(10, 1000, true)
	obs.ObserveWrite(20, 2000, true)
	obs.ObserveDump(30, 3000, true)
	obs.ObserveRetry()

	snap := m.Snapshot()
	if snap.ReadBytes != 10 || snap.WriteBytes != 20 || snap.DumpBytes != 30 {
		t.Errorf("observer did not forward to metrics: %+v", snap)
	}
	if snap.TransferRetries != 1 {
		t.Errorf("expected 1 retry recorded via observer, got %d", snap.TransferRetries)
	}
}
