package rabbitmq

import "github.com/magabrotheeeer/silver-circles/internal/models"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RoutingKey возвращает ключ маршрутизации для типа уведомления.
func RoutingKey(kind models.NotificationKind) string {
	return string(kind)
}

// GetNotificationQueues возвращает очереди, которые читает воркер отправки писем.
func GetNotificationQueues() []QueueConfig {
	kinds := []models.NotificationKind{
		models.NotificationVerification,
		models.NotificationPasswordReset,
		models.NotificationPremiumExpired,
	}
	queues := make([]QueueConfig, 0, len(kinds))
	for _, k := range kinds {
		queues = append(queues, QueueConfig{
			QueueName:  "notifications." + string(k),
			RoutingKey: RoutingKey(k),
		})
	}
	return queues
}
