// Package metrics exposes presence, voice-session, call and delivery metrics to Prometheus.
//
// A nil *Collector is valid and records nothing, so components can be built
// without metrics in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "voicehub"

// Collector owns the registry and every metric the coordinator records.
type Collector struct {
	registry *prometheus.Registry

	relayed        *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	calls          *prometheus.CounterVec
	timeouts       prometheus.Counter
	sessionsOpened prometheus.Counter
}

// NewCollector creates the collector. If registry is nil a fresh one is used.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	c := &Collector{
		registry: registry,
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Events delivered to realtime connections, by event name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Events that could not be delivered, by reason.",
		}, []string{"reason"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Call invitations by outcome.",
		}, []string{"outcome"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_timeouts_total",
			Help:      "Voice sessions ended because a lone participant outlived the grace period.",
		}),
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_sessions_created_total",
			Help:      "Voice sessions created.",
		}),
	}

	registry.MustRegister(c.relayed, c.dropped, c.calls, c.timeouts, c.sessionsOpened)
	return c
}

// StateSource is sampled on every scrape.
type StateSource struct {
	OnlineUsers  func() int
	Sessions     func() int
	Participants func() int
}

// Observe registers gauges that read live state at scrape time.
func (c *Collector) Observe(namespace string, src StateSource) {
	if c == nil {
		return
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	gauge := func(name, help string, fn func() int) {
		if fn == nil {
			return
		}
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) }))
	}
	gauge("online_users", "Users with at least one open realtime connection.", src.OnlineUsers)
	gauge("voice_sessions", "Live voice sessions.", src.Sessions)
	gauge("voice_participants", "Participants across all live voice sessions.", src.Participants)
}

func (c *Collector) IncRelayed(event string) {
	if c == nil {
		return
	}
	c.relayed.WithLabelValues(event).Inc()
}

func (c *Collector) IncDropped(reason string) {
	if c == nil {
		return
	}
	c.dropped.WithLabelValues(reason).Inc()
}

func (c *Collector) IncCall(outcome string) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncSessionTimeout() {
	if c == nil {
		return
	}
	c.timeouts.Inc()
}

func (c *Collector) IncSessionCreated() {
	if c == nil {
		return
	}
	c.sessionsOpened.Inc()
}

// Handler returns the exposition handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
