package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// Metrics groups the collectors exported by the session layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	recordStoreFaults *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	handlerPanics     *prometheus.CounterVec
	remoteFetches     *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recordStoreFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_store_faults_total",
			Help:      "Storage faults recovered by the record store, by table and kind.",
		}, []string{"table", "kind"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_published_total",
			Help:      "Change events published, by topic.",
		}, []string{"topic"}),
		handlerPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_handler_panics_total",
			Help:      "Change subscribers that panicked while handling an event, by topic.",
		}, []string{"topic"}),
		remoteFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fetch_total",
			Help:      "Remote cart/session fetches, by platform and outcome.",
		}, []string{"platform", "outcome"}),
	}
}

// RecordStoreFault counts a recovered storage fault ("unavailable", "io", "corrupt")
func (m *Metrics) RecordStoreFault(table, kind string) {
	if m == nil {
		return
	}
	m.recordStoreFaults.WithLabelValues(table, kind).Inc()
}

func (m *Metrics) EventPublished(topic string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(topic).Inc()
}

func (m *Metrics) HandlerPanic(topic string) {
	if m == nil {
		return
	}
	m.handlerPanics.WithLabelValues(topic).Inc()
}

// RemoteFetch counts a fetch outcome ("ok", "empty", "error", "cart_not_found", "session_revoked", "no_fetcher")
func (m *Metrics) RemoteFetch(platform, outcome string) {
	if m == nil {
		return
	}
	m.remoteFetches.WithLabelValues(platform, outcome).Inc()
}
