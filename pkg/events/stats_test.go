package events

import (
	"testing"
	"time"
)

func TestStatsTransferStartedTracksPeak(t *testing.T) {
	s := NewStats()
	s.TransferStarted()
	s.TransferStarted()
	s.TransferStarted()
	s.TransferFinished(true, 1024, time.Second, false)

	snap := s.Snapshot()
	if snap.ActiveTransfers != 2 {
		t.Fatalf("expected 2 active transfers, got %d", snap.ActiveTransfers)
	}
	if snap.PeakConcurrent != 3 {
		t.Fatalf("expected peak of 3, got %d", snap.PeakConcurrent)
	}
	if snap.BytesUploaded != 1024 {
		t.Fatalf("expected 1024 bytes uploaded, got %d", snap.BytesUploaded)
	}
}

func TestStatsTransferFinishedAbortedCounted(t *testing.T) {
	s := NewStats()
	s.TransferStarted()
	s.TransferFinished(false, 512, 0, true)

	snap := s.Snapshot()
	if snap.AbortedTransfers != 1 {
		t.Fatalf("expected 1 aborted transfer, got %d", snap.AbortedTransfers)
	}
	if snap.BytesDownloaded != 512 {
		t.Fatalf("expected 512 bytes downloaded, got %d", snap.BytesDownloaded)
	}
}

func TestRateSamplerComputesPerSecondRate(t *testing.T) {
	var counter int64
	now := time.Unix(0, 0)
	r := NewRateSampler(func() int64 { return counter })
	r.now = func() time.Time { return now }

	r.Tick()
	counter = 100
	now = now.Add(10 * time.Second)
	r.Tick()

	rate := r.Rate(time.Minute)
	if rate < 9.9 || rate > 10.1 {
		t.Fatalf("expected ~10/s, got %f", rate)
	}
}

func TestRateSamplerPrunesOldSamples(t *testing.T) {
	var counter int64
	now := time.Unix(0, 0)
	r := NewRateSampler(func() int64 { return counter })
	r.now = func() time.Time { return now }

	r.Tick()
	now = now.Add(10 * time.Minute)
	counter = 50
	r.Tick()

	r.mu.Lock()
	n := len(r.samples)
	r.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected old sample pruned, have %d samples", n)
	}
}

func TestRateSamplerZeroWithoutHistory(t *testing.T) {
	r := NewRateSampler(func() int64 { return 0 })
	if rate := r.Rate(time.Minute); rate != 0 {
		t.Fatalf("expected 0 with no history, got %f", rate)
	}
}
