package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts computed quotes by input source and cache outcome.
	QuotesTotal *prometheus.CounterVec
	// PromotionsAppliedTotal counts quotes in which a promotion produced a discount.
	PromotionsAppliedTotal *prometheus.CounterVec
	// QuoteCacheErrors counts cache reads or writes that failed and were skipped.
	QuoteCacheErrors *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of computed promotion quotes.",
		}, []string{"source", "cache"})
		PromotionsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_applied_total",
			Help:      "Count of quotes where a promotion rule produced a discount.",
		}, []string{"rule"})
		QuoteCacheErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_errors_total",
			Help:      "Count of quote cache operations that failed.",
		}, []string{"op"})

		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionsAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteCacheErrors, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteCacheErrors = v
			}
		})
	})
}

// RecordQuote observes a computed quote. It is a no-op until metrics are registered.
func RecordQuote(source string, cached bool, applied []string) {
	if QuotesTotal != nil {
		cacheLabel := "miss"
		if cached {
			cacheLabel = "hit"
		}
		QuotesTotal.WithLabelValues(source, cacheLabel).Inc()
	}
	if PromotionsAppliedTotal != nil {
		for _, rule := range applied {
			PromotionsAppliedTotal.WithLabelValues(rule).Inc()
		}
	}
}

// RecordCacheError observes a failed cache operation ("get" or "set").
func RecordCacheError(op string) {
	if QuoteCacheErrors != nil {
		QuoteCacheErrors.WithLabelValues(op).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
