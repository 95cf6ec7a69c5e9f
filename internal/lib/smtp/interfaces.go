// Package smtp предоставляет транспорт для отправки писем по SMTP с STARTTLS.
package smtp

import "io"

// Client интерфейс для SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface интерфейс для SMTP транспорта.
type TransportInterface interface {
	Connect() (Client, error)
	// From возвращает адрес отправителя для заголовка From.
	From() string
	// GetSMTPUser возвращает адрес для команды MAIL FROM.
	GetSMTPUser() string
}
