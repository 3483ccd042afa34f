package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus collectors for outbound Klaviyo traffic.
type Collector struct {
	EventsForwarded *prometheus.CounterVec
	ProfileUpserts  *prometheus.CounterVec
}

// New creates and registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		EventsForwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klaviyo_events_forwarded_total",
				Help: "Tracking events forwarded to Klaviyo, by metric name and outcome.",
			},
			[]string{"event", "status"},
		),
		ProfileUpserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "klaviyo_profile_upserts_total",
				Help: "Profile upserts sent to Klaviyo, by outcome.",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(c.EventsForwarded, c.ProfileUpserts)
	return c
}

// Outcome labels.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)
