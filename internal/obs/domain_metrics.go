package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SaleOperationsTotal counts orchestrator operations by action and result.
	SaleOperationsTotal *prometheus.CounterVec
	// SaleRejectionsTotal counts domain-rule rejections by reason.
	SaleRejectionsTotal *prometheus.CounterVec
	// SaleNumberRetriesTotal counts sale number generation retries.
	SaleNumberRetriesTotal prometheus.Counter
	// SaleNotificationsTotal tracks fire-and-forget notification outcomes.
	SaleNotificationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SaleOperationsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_operations_total",
			Help:      "Count of sale lifecycle operations by action and result.",
		}, []string{"action", "result"}))
		SaleRejectionsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_rejections_total",
			Help:      "Count of sale operations rejected by domain rules.",
		}, []string{"reason"}))
		SaleNumberRetriesTotal = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_number_retries_total",
			Help:      "Number of sale number generation retries after a collision.",
		}))
		SaleNotificationsTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_notifications_total",
			Help:      "Count of sale notification delivery outcomes.",
		}, []string{"result"}))
	})
}
