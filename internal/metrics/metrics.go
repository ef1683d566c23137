// Package metrics exposes Prometheus collectors for the audit engine and
// an optional /metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModuleRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_module_runs_total",
		Help: "Module executions by module name and outcome.",
	}, []string{"module", "outcome"})

	ModuleSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_module_skips_total",
		Help: "Scheduled dispatches skipped because the previous run was still executing.",
	}, []string{"module"})

	ModuleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "workguard_module_duration_seconds",
		Help:    "Module execution duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"module"})

	HTTPAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workguard_http_attempts_total",
		Help: "Outbound HTTP attempts, including retries.",
	})

	HTTPRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workguard_http_retries_total",
		Help: "Outbound HTTP retry attempts.",
	})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workguard_task_pages_total",
		Help: "Task listing pages processed.",
	})

	EmployeeCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workguard_employee_cache_hits_total",
		Help: "Employee lookups served from the cache.",
	})

	EmployeeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workguard_employee_cache_misses_total",
		Help: "Employee lookups that required an API fetch.",
	})

	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_violations_total",
		Help: "Violations detected by rule.",
	}, []string{"rule"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workguard_emails_total",
		Help: "Notification emails by outcome.",
	}, []string{"outcome"})
)
