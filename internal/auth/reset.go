package auth

import (
	"context"
	"fmt"
	"log/slog"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
)

// * RequestPasswordReset выпускает токен сброса пароля и отправляет ссылку на почту
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"

	log := a.log.With(slog.String("op", op))

	user, err := a.userByEmail(ctx, op, email)
	if err != nil {
		return err
	}

	token, err := a.tokens.Issue(ctx, models.TokenPasswordReset, user.Email)
	if err != nil {
		log.Error("failed to issue reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.mailer.SendPasswordResetEmail(ctx, user.Email, token.Value); err != nil {
		log.Error("failed to send reset email", sl.Err(err))
	}

	log.Info("reset email sent", slog.String("uid", user.ID))

	return nil
}

// * ResetPassword сохраняет новый хеш пароля и затем гасит токен сброса
func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	const op = "auth.ResetPassword"

	log := a.log.With(slog.String("op", op))

	token, err := a.tokens.Check(ctx, models.TokenPasswordReset, resetToken)
	if err != nil {
		log.Info("reset token rejected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userByEmail(ctx, op, token.Email)
	if err != nil {
		return err
	}

	passHash, err := a.hasher.Hash(newPassword)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	if err := a.usrSaver.UpdateUser(ctx, user.ID, models.UserUpdate{PassHash: passHash}); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	if err := a.tokens.Consume(ctx, token); err != nil {
		log.Warn("reset token already spent", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password updated", slog.String("uid", user.ID))

	return nil
}
