package billing

import (
	"time"

	"github.com/stripe/stripe-go/v76"
)

// IsActive сообщает, оплачена ли подписка.
func IsActive(sub *stripe.Subscription) bool {
	return sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing
}

// ClientSecret возвращает секрет для подтверждения первого платежа, если он есть.
func ClientSecret(sub *stripe.Subscription) string {
	if sub.LatestInvoice == nil || sub.LatestInvoice.PaymentIntent == nil {
		return ""
	}
	return sub.LatestInvoice.PaymentIntent.ClientSecret
}

// PeriodEnd возвращает конец текущего периода подписки.
func PeriodEnd(sub *stripe.Subscription) *time.Time {
	return unixTime(sub.CurrentPeriodEnd)
}

// CustomerID возвращает ID покупателя подписки или пустую строку.
func CustomerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

// InvoiceSubscriptionID возвращает ID подписки, по которой выставлен счёт.
func InvoiceSubscriptionID(inv *stripe.Invoice) string {
	if inv.Subscription == nil {
		return ""
	}
	return inv.Subscription.ID
}

// InvoiceCustomerID возвращает ID покупателя счёта.
func InvoiceCustomerID(inv *stripe.Invoice) string {
	if inv.Customer == nil {
		return ""
	}
	return inv.Customer.ID
}

// InvoicePeriodEnd возвращает наибольший конец периода по строкам счёта.
// period_end самого счёта относится к предыдущему периоду и не подходит.
func InvoicePeriodEnd(inv *stripe.Invoice) *time.Time {
	if inv.Lines == nil {
		return nil
	}
	var end int64
	for _, l := range inv.Lines.Data {
		if l != nil && l.Period != nil {
			end = max(end, l.Period.End)
		}
	}
	return unixTime(end)
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
