// Package metrics регистрирует метрики prometheus, которые отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntitlementDecisions считает решения движка доступа по действию и исходу.
	EntitlementDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "silver_circles",
		Name:      "entitlement_decisions_total",
		Help:      "Entitlement decisions by action and outcome.",
	}, []string{"action", "decision"})

	// NotificationsPublished считает письма, поставленные в очередь, по типу и результату.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "silver_circles",
		Name:      "notifications_published_total",
		Help:      "Notifications handed to the queue by kind and result.",
	}, []string{"kind", "result"})

	// BillingEvents считает обработанные события биллинга по типу.
	BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "silver_circles",
		Name:      "billing_events_total",
		Help:      "Billing webhook events by type and result.",
	}, []string{"type", "result"})

	// PremiumRevocations считает снятия премиума при сверке с биллингом.
	PremiumRevocations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "silver_circles",
		Name:      "premium_revocations_total",
		Help:      "Premium projections revoked by reconciliation.",
	})
)

// Result возвращает метку результата для счётчиков.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
