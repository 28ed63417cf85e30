package automation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var schedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automation_scheduler_ticks",
	Help: "Number of scheduler ticks executed",
})

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "automation_tick_duration_seconds",
	Help:    "Time spent processing one scheduler tick",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
})

var rulesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automation_rules_processed",
	Help: "Number of rule evaluations dispatched",
}, []string{"kind"})

var ruleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automation_rule_errors",
	Help: "Number of rule evaluations that failed",
}, []string{"kind"})

var rulePanicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automation_rule_panics_recovered",
	Help: "Number of panics recovered during rule evaluation",
})

var actionsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automation_actions_queued",
	Help: "Number of pending actions queued for external fulfillment",
}, []string{"kind"})

var actionsDirect = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automation_actions_direct",
	Help: "Number of direct actions executed in-process",
}, []string{"kind"})

var rateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automation_rate_limit_denials",
	Help: "Number of candidate actions skipped by the rate limiter",
}, []string{"kind"})
