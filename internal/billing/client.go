// Package billing — клиент платёжного провайдера подписок (Stripe):
// покупатели, подписки и подписанные вебхуки.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/magabrotheeeer/silver-circles/internal/config"
)

// expandPaymentIntent раскрывает счёт и намерение оплаты, чтобы получить
// client_secret первого платежа.
const expandPaymentIntent = "latest_invoice.payment_intent"

// ProviderMessage достаёт текст ошибки провайдера из цепочки err.
// Текст показывается пользователю без изменений.
func ProviderMessage(err error) (string, bool) {
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		return se.Msg, true
	}
	return "", false
}

// Client — клиент API провайдера.
type Client struct {
	api *client.API
}

// NewClient создаёт клиента по настройкам биллинга.
func NewClient(cfg config.Billing, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		LeveledLogger:     leveledLogger{log: logger.With(slog.String("component", "billing"))},
		MaxNetworkRetries: stripe.Int64(int64(cfg.MaxRetries)),
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	return &Client{api: client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendCfg))}
}

// RetrieveSubscription возвращает подписку с раскрытым последним счётом.
func (c *Client) RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	const op = "billing.RetrieveSubscription"
	params := &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand(expandPaymentIntent)
	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateCustomer создаёт покупателя.
func (c *Client) CreateCustomer(ctx context.Context, email, name string, userID int64) (*stripe.Customer, error) {
	const op = "billing.CreateCustomer"
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Name:   stripe.String(name),
	}
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))
	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cust, nil
}

// CreateSubscription создаёт подписку в состоянии ожидания первого платежа.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	const op = "billing.CreateSubscription"
	params := &stripe.SubscriptionParams{
		Params:          stripe.Params{Context: ctx},
		Customer:        stripe.String(customerID),
		Items:           []*stripe.SubscriptionItemsParams{{Price: stripe.String(priceID)}},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.AddExpand(expandPaymentIntent)
	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// leveledLogger направляет журнал stripe-go в slog.
type leveledLogger struct {
	log *slog.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Infof(format string, v ...any)  { l.log.Info(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l leveledLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
