// Package notification отправляет письма пользователям: Dispatcher ставит
// уведомление в очередь RabbitMQ, Sender читает очередь и доставляет письмо по SMTP.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/silver-circles/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/metrics"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// ErrEmptyRecipient возвращается при попытке отправить уведомление без адреса.
var ErrEmptyRecipient = errors.New("notification recipient is empty")

// Dispatcher принимает уведомление к доставке. Ошибка означает, что
// уведомление не было принято; вызывающий решает, критично ли это.
type Dispatcher interface {
	Send(ctx context.Context, n models.Notification) error
}

// QueueDispatcher публикует уведомления в обменник RabbitMQ.
type QueueDispatcher struct {
	mu  sync.Mutex
	ch  rabbitmq.Publisher
	log *slog.Logger
}

// NewQueueDispatcher создает диспетчер поверх открытого канала.
func NewQueueDispatcher(ch rabbitmq.Publisher, log *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{ch: ch, log: log}
}

// Send публикует уведомление с ключом маршрутизации по его типу.
// amqp.Channel не безопасен для конкурентной публикации, поэтому вызовы сериализуются.
func (d *QueueDispatcher) Send(ctx context.Context, n models.Notification) error {
	const op = "notification.QueueDispatcher.Send"
	if n.To == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyRecipient)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	d.mu.Lock()
	err := rabbitmq.PublishMessage(d.ch, rabbitmq.Exchange, rabbitmq.RoutingKey(n.Kind), n)
	d.mu.Unlock()

	metrics.NotificationsPublished.WithLabelValues(string(n.Kind), metrics.Result(err)).Inc()
	if err != nil {
		d.log.Error("failed to publish notification", slog.String("kind", string(n.Kind)), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	d.log.Debug("notification queued", slog.String("kind", string(n.Kind)))
	return nil
}
