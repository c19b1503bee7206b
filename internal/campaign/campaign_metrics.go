package campaign

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the campaign engine.
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	CycleDuration      *prometheus.HistogramVec
	GroupsFound        prometheus.Histogram
	CampaignsCreated   prometheus.Counter
	ItemsAssigned      *prometheus.CounterVec
	AssignConflicts    prometheus.Counter
	TransitionsTotal   *prometheus.CounterVec
	EscalationsTotal   prometheus.Counter
	NotifyFailures     prometheus.Counter
	ItemsIngested      prometheus.Counter
	CampaignsDeleted   prometheus.Counter
	StillbornCampaigns prometheus.Counter
}

// NewMetrics registers and returns campaign engine metrics on the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_cycles_total",
			Help: "Engine cycles by kind and outcome.",
		}, []string{"cycle", "outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sift_cycle_duration_seconds",
			Help:    "Duration of engine cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~40s
		}, []string{"cycle"}),
		GroupsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_detect_groups",
			Help:    "Similarity groups found per detection cycle.",
			Buckets: prometheus.LinearBuckets(0, 1, 16), // 0 .. 15
		}),
		CampaignsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_campaigns_created_total",
			Help: "Total campaigns created by detection.",
		}),
		ItemsAssigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_items_assigned_total",
			Help: "Items bound to a campaign, by source.",
		}, []string{"source"}),
		AssignConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_assignment_conflicts_total",
			Help: "Conditional assignments skipped because the item was claimed concurrently.",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_lifecycle_transitions_total",
			Help: "Campaign status transitions by target status.",
		}, []string{"to"}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_escalations_total",
			Help: "Escalation signals emitted.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_notify_failures_total",
			Help: "Escalation notifications that failed to deliver.",
		}),
		ItemsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_items_ingested_total",
			Help: "Threat items accepted from the upstream annotator.",
		}),
		CampaignsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_campaigns_deleted_total",
			Help: "Campaigns removed by explicit delete.",
		}),
		StillbornCampaigns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sift_campaigns_stillborn_total",
			Help: "Campaigns rolled back because concurrent assignment left too few members.",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.GroupsFound,
		m.CampaignsCreated,
		m.ItemsAssigned,
		m.AssignConflicts,
		m.TransitionsTotal,
		m.EscalationsTotal,
		m.NotifyFailures,
		m.ItemsIngested,
		m.CampaignsDeleted,
		m.StillbornCampaigns,
	)

	return m
}
