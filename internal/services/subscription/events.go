package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"

	"github.com/magabrotheeeer/silver-circles/internal/billing"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/metrics"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// HandleEvent применяет событие вебхука к проекции премиума.
// События по неизвестным подпискам и неизвестных типов пропускаются без ошибки,
// чтобы провайдер не повторял их доставку.
func (m *Manager) HandleEvent(ctx context.Context, event *stripe.Event) error {
	const op = "subscription.HandleEvent"
	eventType := string(event.Type)
	log := m.log.With(slog.String("op", op), slog.String("event_id", event.ID), slog.String("type", eventType))

	err := m.applyEvent(ctx, event)
	switch {
	case errors.Is(err, errIgnored):
		metrics.BillingEvents.WithLabelValues(eventType, "ignored").Inc()
		log.Debug("billing event ignored")
		return nil
	case errors.Is(err, storage.ErrNotFound):
		metrics.BillingEvents.WithLabelValues(eventType, "unknown_subscription").Inc()
		log.Warn("billing event for unknown subscription")
		return nil
	case err != nil:
		metrics.BillingEvents.WithLabelValues(eventType, "error").Inc()
		log.Error("failed to apply billing event", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.BillingEvents.WithLabelValues(eventType, "ok").Inc()
	log.Info("billing event applied")
	return nil
}

var errIgnored = errors.New("event ignored")

func (m *Manager) applyEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeInvoicePaid:
		inv, err := billing.EventInvoice(event)
		if err != nil {
			return err
		}
		subscriptionID := billing.InvoiceSubscriptionID(inv)
		user, err := m.userBySubscription(ctx, subscriptionID)
		if err != nil {
			return err
		}
		_, err = m.grant(ctx, user.ID, billing.InvoiceCustomerID(inv), subscriptionID, billing.InvoicePeriodEnd(inv))
		return err

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		sub, err := billing.EventSubscription(event)
		if err != nil {
			return err
		}
		user, err := m.userBySubscription(ctx, sub.ID)
		if err != nil {
			return err
		}
		if event.Type == stripe.EventTypeCustomerSubscriptionDeleted {
			return m.revoke(ctx, user)
		}
		switch sub.Status {
		case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
			_, err = m.grant(ctx, user.ID, billing.CustomerID(sub), sub.ID, billing.PeriodEnd(sub))
			return err
		case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
			if !user.IsPremium {
				return nil
			}
			return m.revoke(ctx, user)
		default:
			return errIgnored
		}

	default:
		return errIgnored
	}
}
