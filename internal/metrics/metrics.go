// Package metrics registers the Prometheus collectors the planning
// service exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the plan service updates. A caller
// registers these against its own *prometheus.Registry so planning
// metrics coexist cleanly with a host application's own collectors.
type Metrics struct {
	PlansTotal       *prometheus.CounterVec
	PlanDuration     *prometheus.HistogramVec
	FilteredRules    *prometheus.CounterVec
	UnboundAtomics   prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// New registers and returns a Metrics bundle against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PlansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odrlplan_plans_total",
			Help: "Number of evaluation plans produced, labeled by outcome.",
		}, []string{"outcome"}),
		PlanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odrlplan_plan_duration_seconds",
			Help:    "Wall-clock time spent building an evaluation plan.",
			Buckets: prometheus.DefBuckets,
		}, []string{"cache"}),
		FilteredRules: f.NewCounterVec(prometheus.CounterOpts{
			Name: "odrlplan_filtered_rules_total",
			Help: "Number of rule steps marked filtered, labeled by rule kind.",
		}, []string{"kind"}),
		UnboundAtomics: f.NewCounter(prometheus.CounterOpts{
			Name: "odrlplan_unbound_atomic_constraints_total",
			Help: "Number of atomic constraint steps that resolved no function.",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "odrlplan_plan_cache_hits_total",
			Help: "Number of Plan calls served from the plan cache.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "odrlplan_plan_cache_misses_total",
			Help: "Number of Plan calls that required a fresh tree walk.",
		}),
	}
}
