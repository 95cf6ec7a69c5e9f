package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/silver-circles/internal/lib/sl"
	"github.com/magabrotheeeer/silver-circles/internal/lib/smtp"
	"github.com/magabrotheeeer/silver-circles/internal/models"
)

// ErrUnknownKind возвращается для уведомления неизвестного типа.
var ErrUnknownKind = errors.New("unknown notification kind")

// Sender доставляет уведомления из очереди по SMTP.
type Sender struct {
	transport smtp.TransportInterface
	publicURL string
	log       *slog.Logger
}

// NewSender создает новый экземпляр Sender. publicURL используется для
// ссылок подтверждения почты и сброса пароля.
func NewSender(transport smtp.TransportInterface, publicURL string, log *slog.Logger) *Sender {
	return &Sender{
		transport: transport,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// Handle разбирает сообщение очереди и отправляет письмо.
func (s *Sender) Handle(body []byte) error {
	const op = "notification.Sender.Handle"
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Deliver(n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Deliver формирует письмо по типу уведомления и отправляет его.
func (s *Sender) Deliver(n models.Notification) error {
	if n.To == "" {
		return ErrEmptyRecipient
	}
	subject, text, err := s.Compose(n)
	if err != nil {
		return err
	}
	return s.sendEmail([]string{n.To}, subject, text)
}

// Compose возвращает тему и текст письма.
func (s *Sender) Compose(n models.Notification) (string, string, error) {
	switch n.Kind {
	case models.NotificationVerification:
		link := s.link("/verify-email", n.Token)
		return "Verify Your Email Address", fmt.Sprintf(
			"Hello %s,\n\nWelcome to Silver Circles! Please confirm your email address by opening the link below:\n\n%s\n\nThe link is valid for 24 hours. If you did not create an account, you can ignore this email.",
			n.Username, link), nil
	case models.NotificationPasswordReset:
		link := s.link("/reset-password", n.Token)
		return "Reset Your Password", fmt.Sprintf(
			"Hello %s,\n\nWe received a request to reset your Silver Circles password. Open the link below to choose a new one:\n\n%s\n\nThis link will expire in 1 hour. If you did not request a reset, you can ignore this email.",
			n.Username, link), nil
	case models.NotificationPremiumExpired:
		return "Your Premium Membership Has Ended", fmt.Sprintf(
			"Hello %s,\n\nYour Silver Circles premium membership has ended. Premium forums, groups and calls are no longer available on your account.\n\nYou can renew at any time from your account page:\n\n%s",
			n.Username, s.publicURL+"/subscription"), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
}

func (s *Sender) link(path, token string) string {
	return s.publicURL + path + "?token=" + url.QueryEscape(token)
}

func (s *Sender) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.String("subject", subject))
	return nil
}
