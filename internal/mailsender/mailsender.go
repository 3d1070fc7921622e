package mailsender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"

	"gopkg.in/gomail.v2"
)

var ErrUnknownPurpose = errors.New("unknown message purpose")

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *Mailer) Send(to, subject, body string) error {
	from := m.From
	if from == "" {
		from = m.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", from)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(msg)
}

// * Compose собирает тему и текст письма по назначению сообщения
func Compose(msg models.Message) (subject, body string, err error) {
	switch msg.Purpose {
	case models.PurposeVerification:
		return "Подтверждение почты",
			fmt.Sprintf("Перейдите по ссылке, чтобы подтвердить почту: %s", msg.Link), nil
	case models.PurposePasswordReset:
		return "Сброс пароля",
			fmt.Sprintf("Перейдите по ссылке, чтобы задать новый пароль: %s", msg.Link), nil
	case models.PurposeTwoFactor:
		return "Код подтверждения входа",
			fmt.Sprintf("Ваш код для входа: %s", msg.Code), nil
	}

	return "", "", fmt.Errorf("%w: %q", ErrUnknownPurpose, msg.Purpose)
}

type Sender interface {
	Send(to, subject, body string) error
}

// Handler decodes a queued message and delivers it through sender.
func Handler(log *slog.Logger, sender Sender) func(body []byte) error {
	return func(body []byte) error {
		const op = "mailsender.Handler"

		log := log.With(slog.String("op", op))

		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		subject, text, err := Compose(msg)
		if err != nil {
			log.Error("failed to compose message", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := sender.Send(msg.Email, subject, text); err != nil {
			log.Error("failed to send message", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
}
