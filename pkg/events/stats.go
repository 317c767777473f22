package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats holds the daemon's global atomic counters. Values are
// best-effort: there is no cross-counter consistency guarantee, only
// per-field atomicity.
type Stats struct {
	ActiveConnections  atomic.Int64
	TotalConnections   atomic.Int64
	TotalCommands      atomic.Int64
	FailedLogins       atomic.Int64
	AbortedTransfers   atomic.Int64
	ActiveTransfers    atomic.Int64
	TotalTransfers     atomic.Int64
	BytesUploaded      atomic.Int64
	BytesDownloaded    atomic.Int64
	TotalTransferNanos atomic.Int64
	PeakConcurrent     atomic.Int64
}

// NewStats builds a zeroed Stats.
func NewStats() *Stats {
	return &Stats{}
}

// ConnectionOpened records a new session being accepted.
func (s *Stats) ConnectionOpened() {
	s.ActiveConnections.Add(1)
	s.TotalConnections.Add(1)
}

// ConnectionClosed records a session ending.
func (s *Stats) ConnectionClosed() {
	s.ActiveConnections.Add(-1)
}

// CommandProcessed increments the total-commands counter.
func (s *Stats) CommandProcessed() {
	s.TotalCommands.Add(1)
}

// LoginFailedInc increments the failed-login counter.
func (s *Stats) LoginFailedInc() {
	s.FailedLogins.Add(1)
}

// TransferStarted records a new transfer beginning, updating the peak
// concurrency high-water mark if needed.
func (s *Stats) TransferStarted() {
	n := s.ActiveTransfers.Add(1)
	for {
		peak := s.PeakConcurrent.Load()
		if n <= peak || s.PeakConcurrent.CompareAndSwap(peak, n) {
			return
		}
	}
}

// TransferFinished records a transfer ending, whether it completed or
// aborted, folding its byte count and duration into the totals.
func (s *Stats) TransferFinished(uploaded bool, bytes int64, dur time.Duration, aborted bool) {
	s.ActiveTransfers.Add(-1)
	s.TotalTransfers.Add(1)
	s.TotalTransferNanos.Add(dur.Nanoseconds())
	if aborted {
		s.AbortedTransfers.Add(1)
	}
	if uploaded {
		s.BytesUploaded.Add(bytes)
	} else {
		s.BytesDownloaded.Add(bytes)
	}
}

// Snapshot is a point-in-time read of every counter, used by the
// runtime's status-snapshot accessor.
type Snapshot struct {
	ActiveConnections int64
	TotalConnections  int64
	TotalCommands     int64
	FailedLogins      int64
	AbortedTransfers  int64
	ActiveTransfers   int64
	TotalTransfers    int64
	BytesUploaded     int64
	BytesDownloaded   int64
	TotalTransferTime time.Duration
	PeakConcurrent    int64
}

// Snapshot reads every counter. Because counters are read independently,
// the result is internally consistent only up to ordinary atomic
// visibility, not a frozen transaction.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ActiveConnections: s.ActiveConnections.Load(),
		TotalConnections:  s.TotalConnections.Load(),
		TotalCommands:     s.TotalCommands.Load(),
		FailedLogins:      s.FailedLogins.Load(),
		AbortedTransfers:  s.AbortedTransfers.Load(),
		ActiveTransfers:   s.ActiveTransfers.Load(),
		TotalTransfers:    s.TotalTransfers.Load(),
		BytesUploaded:     s.BytesUploaded.Load(),
		BytesDownloaded:   s.BytesDownloaded.Load(),
		TotalTransferTime: time.Duration(s.TotalTransferNanos.Load()),
		PeakConcurrent:    s.PeakConcurrent.Load(),
	}
}

// RateSampler derives rolling per-second rates over fixed windows (5s,
// 1m, 5m) by periodically sampling a counter and comparing against past
// samples.
type RateSampler struct {
	mu      sync.Mutex
	read    func() int64
	samples []sample
	now     func() time.Time
}

type sample struct {
	at    time.Time
	value int64
}

// NewRateSampler builds a sampler over read, a function returning the
// current value of the counter being tracked (e.g. TotalCommands.Load).
func NewRateSampler(read func() int64) *RateSampler {
	return &RateSampler{read: read, now: time.Now}
}

// Tick records a new sample and prunes samples older than 5 minutes,
// the widest rolling window a RateSampler supports.
func (r *RateSampler) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.samples = append(r.samples, sample{at: now, value: r.read()})
	cutoff := now.Add(-5 * time.Minute)
	i := 0
	for i < len(r.samples) && r.samples[i].at.Before(cutoff) {
		i++
	}
	r.samples = r.samples[i:]
}

// Rate returns the average per-second delta over the most recent window
// duration, or 0 if there isn't yet enough history.
func (r *RateSampler) Rate(window time.Duration) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.samples) < 2 {
		return 0
	}
	latest := r.samples[len(r.samples)-1]
	cutoff := latest.at.Add(-window)

	var base *sample
	for i := range r.samples {
		if !r.samples[i].at.Before(cutoff) {
			base = &r.samples[i]
			break
		}
	}
	if base == nil {
		base = &r.samples[0]
	}
	elapsed := latest.at.Sub(base.at).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(latest.value-base.value) / elapsed
}
