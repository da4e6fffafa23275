package eligibility

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan labels.
const (
	scanBundle     = "bundle"
	scanCustomized = "customized"
)

// Metrics holds the engine's counters. One instance is shared by every
// request-scoped Coordinator in a process; prometheus collectors are safe for
// concurrent use.
type Metrics struct {
	CacheLookups  *prometheus.CounterVec
	Reentries     prometheus.Counter
	NotApplicable prometheus.Counter
	InjectedItems prometheus.Counter
	Invalidations *prometheus.CounterVec
	ItemVerdicts  *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
// A nil reg leaves them unregistered (tests, embedded use).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "qualification_cache_lookups_total",
			Help:      "Qualification scan cache lookups by scan and result (hit, miss).",
		}, []string{"scan", "result"}),
		Reentries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "allowlist_reentries_total",
			Help:      "Nested allow-list expansion calls short-circuited by the re-entrancy guard.",
		}),
		NotApplicable: f.NewCounter(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "not_applicable_total",
			Help:      "Coupons rejected because no cart line satisfied their restrictions.",
		}),
		InjectedItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "injected_items_total",
			Help:      "Customized lines added to the discount-application list.",
		}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidations by cart event.",
		}, []string{"event"}),
		ItemVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "couponkeeper",
			Name:      "item_verdicts_total",
			Help:      "Per-line verdicts decided by the engine, by reason and outcome.",
		}, []string{"reason", "valid"}),
	}
}
