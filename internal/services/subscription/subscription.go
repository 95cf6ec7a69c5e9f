// Package subscription синхронизирует премиум-доступ пользователя с
// подпиской у платежного провайдера. Флаг IsPremium в записи пользователя
// является проекцией состояния биллинга и обновляется только здесь
// или через административное переопределение.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/magabrotheeeer/silver-circles/internal/billing"
	"github.com/magabrotheeeer/silver-circles/internal/config"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/metrics"
	"github.com/magabrotheeeer/silver-circles/internal/models"
	"github.com/magabrotheeeer/silver-circles/internal/services/notification"
	"github.com/magabrotheeeer/silver-circles/internal/storage"
)

// ErrNoSubscription — у пользователя нет ссылки на подписку.
var ErrNoSubscription = errors.New("user has no billing subscription")

// BillingClient — операции провайдера, которые использует менеджер.
type BillingClient interface {
	RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	CreateCustomer(ctx context.Context, email, name string, userID int64) (*stripe.Customer, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
}

// UserStore — часть хранилища, нужная менеджеру.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByKey(ctx context.Context, key models.UserKey, value string) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	FindPremiumExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]*models.User, error)
}

// Result — ответ EnsureSubscription. ClientSecret задан, только если
// клиенту нужно подтвердить платеж.
type Result struct {
	SubscriptionID string  `json:"subscriptionId"`
	ClientSecret   *string `json:"clientSecret"`
}

// Manager управляет жизненным циклом подписки.
type Manager struct {
	users    UserStore
	billing  BillingClient
	notifier notification.Dispatcher
	cfg      config.Billing
	log      *slog.Logger
	now      func() time.Time
}

// NewManager создает новый экземпляр Manager.
func NewManager(users UserStore, client BillingClient, notifier notification.Dispatcher, cfg config.Billing, log *slog.Logger) *Manager {
	if cfg.DefaultPeriod <= 0 {
		cfg.DefaultPeriod = 30 * 24 * time.Hour
	}
	return &Manager{
		users:    users,
		billing:  client,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// EnsureSubscription возвращает действующую подписку пользователя или
// создает новую, ожидающую первого платежа.
// Ошибка получения существующей подписки не прерывает сценарий: создается новая.
// Ошибка создания возвращается с сообщением провайдера (см. billing.ProviderMessage).
func (m *Manager) EnsureSubscription(ctx context.Context, user *models.User) (*Result, error) {
	const op = "subscription.EnsureSubscription"
	log := m.log.With(slog.String("op", op), sl.UserID(user.ID))

	if user.BillingSubscriptionID != nil {
		sub, err := m.billing.RetrieveSubscription(ctx, *user.BillingSubscriptionID)
		switch {
		case err != nil:
			log.Warn("failed to retrieve subscription, creating a new one", sl.Err(err))
		case billing.IsActive(sub):
			if _, err := m.grant(ctx, user.ID, billing.CustomerID(sub), sub.ID, billing.PeriodEnd(sub)); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return &Result{SubscriptionID: sub.ID}, nil
		case sub.Status == stripe.SubscriptionStatusIncomplete && billing.ClientSecret(sub) != "":
			secret := billing.ClientSecret(sub)
			return &Result{SubscriptionID: sub.ID, ClientSecret: &secret}, nil
		default:
			log.Info("existing subscription is not usable", slog.String("status", string(sub.Status)))
		}
	}

	customerID := ""
	if user.BillingCustomerID != nil {
		customerID = *user.BillingCustomerID
	}
	if customerID == "" {
		name := user.FullName
		if name == "" {
			name = user.Username
		}
		cust, err := m.billing.CreateCustomer(ctx, user.Email, name, user.ID)
		if err != nil {
			log.Error("failed to create billing customer", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		customerID = cust.ID
		// Покупатель сохраняется до создания подписки.
		if _, err := m.users.UpdateUser(ctx, user.ID, models.UserPatch{BillingCustomerID: &customerID}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	sub, err := m.billing.CreateSubscription(ctx, customerID, m.cfg.PriceID)
	if err != nil {
		log.Error("failed to create billing subscription", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := m.users.UpdateUser(ctx, user.ID, models.UserPatch{
		BillingSubscriptionID: &sub.ID,
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("billing subscription created", slog.String("subscription_id", sub.ID))

	res := &Result{SubscriptionID: sub.ID}
	if secret := billing.ClientSecret(sub); secret != "" {
		res.ClientSecret = &secret
	}
	return res, nil
}

// Confirm сверяет подписку пользователя с провайдером после того, как
// клиент сообщил об оплате, и выдает премиум, если подписка действует.
func (m *Manager) Confirm(ctx context.Context, userID int64) (*models.User, error) {
	const op = "subscription.Confirm"
	user, err := m.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.BillingSubscriptionID == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSubscription)
	}
	sub, err := m.billing.RetrieveSubscription(ctx, *user.BillingSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !billing.IsActive(sub) {
		return user, nil
	}
	user, err = m.grant(ctx, user.ID, billing.CustomerID(sub), sub.ID, billing.PeriodEnd(sub))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// SetPremium — административное переопределение премиума.
// Ссылки на биллинг не меняются.
func (m *Manager) SetPremium(ctx context.Context, userID int64, premium bool, until *time.Time) (*models.User, error) {
	const op = "subscription.SetPremium"
	user, err := m.users.UpdateUser(ctx, userID, models.UserPatch{
		IsPremium:    &premium,
		PremiumUntil: &models.TimePatch{Value: until},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Info("premium overridden by admin", sl.UserID(userID), slog.Bool("premium", premium))
	return user, nil
}

// grant выдает премиум до periodEnd, а если провайдер его не сообщил,
// на период по умолчанию от текущего момента.
func (m *Manager) grant(ctx context.Context, userID int64, customerID, subscriptionID string, periodEnd *time.Time) (*models.User, error) {
	until := m.now().Add(m.cfg.DefaultPeriod)
	if periodEnd != nil {
		until = *periodEnd
	}
	premium := true
	patch := models.UserPatch{
		IsPremium:    &premium,
		PremiumUntil: &models.TimePatch{Value: &until},
	}
	if customerID != "" {
		patch.BillingCustomerID = &customerID
	}
	if subscriptionID != "" {
		patch.BillingSubscriptionID = &subscriptionID
	}
	return m.users.UpdateUser(ctx, userID, patch)
}

// revoke снимает премиум и уведомляет пользователя.
func (m *Manager) revoke(ctx context.Context, user *models.User) error {
	premium := false
	if _, err := m.users.UpdateUser(ctx, user.ID, models.UserPatch{
		IsPremium:    &premium,
		PremiumUntil: &models.TimePatch{},
	}); err != nil {
		return err
	}
	metrics.PremiumRevocations.Inc()
	if err := m.notifier.Send(ctx, models.Notification{
		Kind:     models.NotificationPremiumExpired,
		To:       user.Email,
		Username: user.Username,
	}); err != nil {
		m.log.Error("failed to dispatch premium expired notification", sl.UserID(user.ID), sl.Err(err))
	}
	return nil
}

func (m *Manager) userBySubscription(ctx context.Context, subscriptionID string) (*models.User, error) {
	if subscriptionID == "" {
		return nil, storage.ErrNotFound
	}
	return m.users.GetUserByKey(ctx, models.KeyBillingSubscription, subscriptionID)
}
