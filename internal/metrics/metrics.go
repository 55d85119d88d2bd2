package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "applications_submitted_total",
		Help: "Total applications submitted",
	})

	ApplicationsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "applications_approved_total",
		Help: "Total applications approved by users",
	})

	ApplicationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "applications_rejected_total",
		Help: "Applications rejected before submission, by reason",
	}, []string{"reason"})

	JobSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "job_search_duration_seconds",
		Help:    "Time spent on a daily job search run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ActiveUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_users",
		Help: "Users with auto-apply enabled at the last scheduled run",
	})

	LLMParseFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_parse_fallbacks_total",
		Help: "LLM responses replaced by a default payload, by task",
	}, []string{"task"})
)
