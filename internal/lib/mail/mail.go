package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
)

const (
	verificationPath  = "/auth/new-verification"
	passwordResetPath = "/auth/new-password"
)

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

// Dispatcher builds email messages and hands them to the broker.
type Dispatcher struct {
	log     *slog.Logger
	pub     Publisher
	baseURL string
}

func NewDispatcher(log *slog.Logger, pub Publisher, baseURL string) *Dispatcher {
	return &Dispatcher{
		log:     log,
		pub:     pub,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (d *Dispatcher) SendVerificationEmail(ctx context.Context, email, token string) error {
	return d.send(ctx, models.Message{
		Email:   email,
		Link:    d.link(verificationPath, token),
		Purpose: models.PurposeVerification,
	})
}

func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	return d.send(ctx, models.Message{
		Email:   email,
		Link:    d.link(passwordResetPath, token),
		Purpose: models.PurposePasswordReset,
	})
}

func (d *Dispatcher) SendTwoFactorEmail(ctx context.Context, email, code string) error {
	return d.send(ctx, models.Message{
		Email:   email,
		Code:    code,
		Purpose: models.PurposeTwoFactor,
	})
}

func (d *Dispatcher) send(ctx context.Context, msg models.Message) error {
	const op = "mail.Dispatcher.send"

	if err := d.pub.SendMessage(ctx, msg); err != nil {
		d.log.Error("failed to publish email",
			slog.String("op", op),
			slog.String("purpose", msg.Purpose),
			sl.Err(err),
		)

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (d *Dispatcher) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", d.baseURL, path, url.QueryEscape(token))
}
