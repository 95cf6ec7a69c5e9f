package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader — заголовок с подписью вебхука.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance — допустимое расхождение времени подписи.
const DefaultTolerance = webhook.DefaultTolerance

// ConstructEvent проверяет подпись вебхука и разбирает событие.
// Версия API события может отличаться от версии библиотеки: из события
// читаются только ID, статус, покупатель и периоды.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration) (*stripe.Event, error) {
	const op = "billing.ConstructEvent"
	event, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &event, nil
}

// EventSubscription разбирает объект события как подписку.
func EventSubscription(e *stripe.Event) (*stripe.Subscription, error) {
	var s stripe.Subscription
	if err := decodeObject(e, &s); err != nil {
		return nil, fmt.Errorf("billing.EventSubscription: %w", err)
	}
	return &s, nil
}

// EventInvoice разбирает объект события как счёт.
func EventInvoice(e *stripe.Event) (*stripe.Invoice, error) {
	var i stripe.Invoice
	if err := decodeObject(e, &i); err != nil {
		return nil, fmt.Errorf("billing.EventInvoice: %w", err)
	}
	return &i, nil
}

func decodeObject(e *stripe.Event, out any) error {
	if e.Data == nil || len(e.Data.Raw) == 0 {
		return fmt.Errorf("event %s has no object", e.ID)
	}
	return json.Unmarshal(e.Data.Raw, out)
}
