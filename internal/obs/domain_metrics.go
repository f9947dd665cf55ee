package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentsCreatedTotal counts created documents by type.
	DocumentsCreatedTotal *prometheus.CounterVec
	// DocumentsSubmittedTotal counts submission outcomes by document type.
	DocumentsSubmittedTotal *prometheus.CounterVec
	// DocumentStatusChanges counts status transitions by type and target status.
	DocumentStatusChanges *prometheus.CounterVec
	// TotalsRecomputeDuration records latency of derived-totals recomputation.
	TotalsRecomputeDuration prometheus.Histogram
	// ProductCacheOps counts catalog cache lookups by outcome.
	ProductCacheOps *prometheus.CounterVec
	// WebhookDeliveriesTotal tracks webhook dispatch outcomes.
	WebhookDeliveriesTotal *prometheus.CounterVec
	// WebhookAttemptLatency records delivery attempt latency in milliseconds.
	WebhookAttemptLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_created_total",
			Help:      "Count of documents created by document type.",
		}, []string{"type"})
		DocumentsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_submitted_total",
			Help:      "Count of document submission outcomes by type.",
		}, []string{"type", "result"})
		DocumentStatusChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_status_changes_total",
			Help:      "Count of document status transitions.",
		}, []string{"type", "status"})
		TotalsRecomputeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "totals_recompute_duration_ms",
			Help:      "Latency of derived-totals recomputation in milliseconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		})
		ProductCacheOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_cache_ops_total",
			Help:      "Catalog cache operations by outcome.",
		}, []string{"result"})
		WebhookDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Count of webhook delivery outcomes.",
		}, []string{"result"})
		WebhookAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_attempt_duration_ms",
			Help:      "Latency for webhook delivery attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})

		mustRegisterCollector(reg, DocumentsCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentsCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentsSubmittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentsSubmittedTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentStatusChanges, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentStatusChanges = v
			}
		})
		mustRegisterCollector(reg, TotalsRecomputeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				TotalsRecomputeDuration = v
			}
		})
		mustRegisterCollector(reg, ProductCacheOps, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ProductCacheOps = v
			}
		})
		mustRegisterCollector(reg, WebhookDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WebhookDeliveriesTotal = v
			}
		})
		mustRegisterCollector(reg, WebhookAttemptLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				WebhookAttemptLatency = v
			}
		})
	})
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
