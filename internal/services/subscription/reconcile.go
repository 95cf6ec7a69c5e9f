package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/silver-circles/internal/billing"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// defaultReconcileBatch — размер страницы, если batchSize не задан.
const defaultReconcileBatch = 100

// ReconcileReport — итог одного прохода сверки.
type ReconcileReport struct {
	Checked  int
	Extended int
	Revoked  int
	Failed   int
}

// Reconcile находит пользователей, у которых флаг премиума пережил
// PremiumUntil, и сверяет их с провайдером: действующая подписка
// продлевает доступ, иначе премиум снимается.
// Пользователи читаются страницами по batchSize в порядке ID. Если провайдер
// недоступен, пользователь пропускается до следующего прохода, а проход
// продолжается со следующей страницы.
func (m *Manager) Reconcile(ctx context.Context, batchSize int) (ReconcileReport, error) {
	const op = "subscription.Reconcile"
	if batchSize <= 0 {
		batchSize = defaultReconcileBatch
	}
	var report ReconcileReport
	now := m.now()

	var afterID int64
	for {
		users, err := m.users.FindPremiumExpired(ctx, now, afterID, batchSize)
		if err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		for _, user := range users {
			afterID = user.ID
			report.Checked++
			m.reconcileUser(ctx, user, now, &report)
		}
		if len(users) < batchSize || ctx.Err() != nil {
			return report, nil
		}
	}
}

func (m *Manager) reconcileUser(ctx context.Context, user *models.User, now time.Time, report *ReconcileReport) {
	const op = "subscription.Reconcile"
	log := m.log.With(slog.String("op", op), sl.UserID(user.ID))

	if user.BillingSubscriptionID != nil {
		sub, err := m.billing.RetrieveSubscription(ctx, *user.BillingSubscriptionID)
		if err != nil {
			report.Failed++
			log.Warn("failed to retrieve subscription", sl.Err(err))
			return
		}
		end := billing.PeriodEnd(sub)
		if billing.IsActive(sub) && (end == nil || end.After(now)) {
			if _, err := m.grant(ctx, user.ID, billing.CustomerID(sub), sub.ID, end); err != nil {
				report.Failed++
				log.Error("failed to extend premium", sl.Err(err))
				return
			}
			report.Extended++
			return
		}
	}

	if err := m.revoke(ctx, user); err != nil {
		report.Failed++
		log.Error("failed to revoke premium", sl.Err(err))
		return
	}
	report.Revoked++
	log.Info("premium revoked")
}
