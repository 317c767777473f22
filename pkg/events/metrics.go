package events

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors Stats as Prometheus collectors, registered once and
// updated alongside the atomic counters. Every method is nil-receiver
// safe, so metrics can be wired in only when a registerer is configured.
type Metrics struct {
	Connections    prometheus.Counter
	ActiveSessions prometheus.Gauge
	Commands       prometheus.Counter
	FailedLogins   prometheus.Counter
	Transfers      *prometheus.CounterVec // labels: direction=[upload,download], outcome=[complete,aborted]
	BytesMoved     *prometheus.CounterVec // labels: direction=[upload,download]
	ActiveXfers    prometheus.Gauge
	TransferTime   prometheus.Histogram
	EventsEmitted  *prometheus.CounterVec // labels: kind
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics registers and returns the singleton Metrics instance. A nil
// registerer falls back to prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		m := &Metrics{
			Connections: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "amftpd_connections_total",
				Help: "Total accepted control connections",
			}),
			ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "amftpd_active_sessions",
				Help: "Current number of active sessions",
			}),
			Commands: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "amftpd_commands_total",
				Help: "Total FTP commands processed",
			}),
			FailedLogins: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "amftpd_failed_logins_total",
				Help: "Total failed login attempts",
			}),
			Transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amftpd_transfers_total",
				Help: "Total completed or aborted transfers",
			}, []string{"direction", "outcome"}),
			BytesMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amftpd_bytes_total",
				Help: "Total bytes moved",
			}, []string{"direction"}),
			ActiveXfers: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "amftpd_active_transfers",
				Help: "Current number of in-flight transfers",
			}),
			TransferTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "amftpd_transfer_duration_seconds",
				Help:    "Transfer duration in seconds",
				Buckets: prometheus.DefBuckets,
			}),
			EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "amftpd_events_total",
				Help: "Total events published on the event bus, by kind",
			}, []string{"kind"}),
		}
		registerer.MustRegister(
			m.Connections, m.ActiveSessions, m.Commands, m.FailedLogins,
			m.Transfers, m.BytesMoved, m.ActiveXfers, m.TransferTime, m.EventsEmitted,
)
		metricsInstance = m
	})
	return metricsInstance
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) commandProcessed() {
	if m == nil {
		return
	}
	m.Commands.Inc()
}

func (m *Metrics) loginFailed() {
	if m == nil {
		return
	}
	m.FailedLogins.Inc()
}

func (m *Metrics) transferStarted() {
	if m == nil {
		return
	}
	m.ActiveXfers.Inc()
}

func (m *Metrics) transferFinished(uploaded bool, bytes int64, seconds float64, aborted bool) {
	if m == nil {
		return
	}
	m.ActiveXfers.Dec()
	direction := "download"
	if uploaded {
		direction = "upload"
	}
	outcome := "complete"
	if aborted {
		outcome = "aborted"
	}
	m.Transfers.WithLabelValues(direction, outcome).Inc()
	m.BytesMoved.WithLabelValues(direction).Add(float64(bytes))
	m.TransferTime.Observe(seconds)
}

func (m *Metrics) eventPublished(kind Kind) {
	if m == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(string(kind)).Inc()
}

// Recorder pairs Stats (for the in-process status snapshot) with
// Metrics (for Prometheus scraping) and a Bus (for subscriber
// notification), so callers update all three through one call.
type Recorder struct {
	Stats   *Stats
	Metrics *Metrics
	Bus     *Bus
}

// NewRecorder builds a Recorder. metrics may be nil to disable
// Prometheus export.
func NewRecorder(bus *Bus, metrics *Metrics) *Recorder {
	return &Recorder{Stats: NewStats(), Metrics: metrics, Bus: bus}
}

func (r *Recorder) ConnectionOpened() {
	r.Stats.ConnectionOpened()
	r.Metrics.connectionOpened()
}

func (r *Recorder) ConnectionClosed() {
	r.Stats.ConnectionClosed()
	r.Metrics.connectionClosed()
}

func (r *Recorder) CommandProcessed() {
	r.Stats.CommandProcessed()
	r.Metrics.commandProcessed()
}

func (r *Recorder) LoginFailed() {
	r.Stats.LoginFailedInc()
	r.Metrics.loginFailed()
}

func (r *Recorder) TransferStarted() {
	r.Stats.TransferStarted()
	r.Metrics.transferStarted()
}

func (r *Recorder) TransferFinished(uploaded bool, bytes int64, dur time.Duration, aborted bool) {
	r.Stats.TransferFinished(uploaded, bytes, dur, aborted)
	r.Metrics.transferFinished(uploaded, bytes, dur.Seconds(), aborted)
}

func (r *Recorder) Publish(ev Event) {
	if r.Bus != nil {
		r.Bus.Publish(ev)
	}
	r.Metrics.eventPublished(ev.Kind)
}
