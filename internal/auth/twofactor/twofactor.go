// Package twofactor implements the second-factor step that runs before the
// sign-in decision: it emails a one-time code and, once the code is
// confirmed, records a TwoFactorConfirmation for the next sign-in.
package twofactor

import (
	"context"
	"fmt"
	"log/slog"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"

	"github.com/google/uuid"
)

type CodeIssuer interface {
	Issue(ctx context.Context, kind models.TokenKind, email string) (models.Token, error)
	RedeemCode(ctx context.Context, kind models.TokenKind, email, code string) (models.Token, error)
}

type ConfirmationSaver interface {
	// SaveTwoFactorConfirmation replaces any confirmation the user already has.
	SaveTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) error
}

type CodeSender interface {
	SendTwoFactorEmail(ctx context.Context, email, code string) error
}

type TwoFactorAuthentificator struct {
	log           *slog.Logger
	codes         CodeIssuer
	confirmations ConfirmationSaver
	sender        CodeSender
}

func New(
	log *slog.Logger,
	codes CodeIssuer,
	confirmations ConfirmationSaver,
	sender CodeSender,
) *TwoFactorAuthentificator {
	return &TwoFactorAuthentificator{
		log:           log,
		codes:         codes,
		confirmations: confirmations,
		sender:        sender,
	}
}

// * Challenge генерирует код и отправляет его на email пользователя
func (s *TwoFactorAuthentificator) Challenge(ctx context.Context, user models.User) error {
	const op = "twoFactorAuth.Challenge"

	log := s.log.With(slog.String("op", op), slog.String("user_id", user.ID))

	token, err := s.codes.Issue(ctx, models.TokenTwoFactor, user.Email)
	if err != nil {
		log.Error("failed to issue two factor code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.sender.SendTwoFactorEmail(ctx, user.Email, token.Value); err != nil {
		log.Error("failed to send two factor code", sl.Err(err))
	}

	log.Info("two factor code sent")

	return nil
}

// * Confirm проверяет код и сохраняет подтверждение для следующего входа
func (s *TwoFactorAuthentificator) Confirm(ctx context.Context, user models.User, code string) error {
	const op = "twoFactorAuth.Confirm"

	log := s.log.With(slog.String("op", op), slog.String("user_id", user.ID))

	if _, err := s.codes.RedeemCode(ctx, models.TokenTwoFactor, user.Email, code); err != nil {
		log.Info("two factor code rejected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	confirmation := models.TwoFactorConfirmation{
		ID:     uuid.NewString(),
		UserID: user.ID,
	}

	if err := s.confirmations.SaveTwoFactorConfirmation(ctx, confirmation); err != nil {
		log.Error("failed to save two factor confirmation", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	return nil
}
