package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"
)

// * VerifyUser отмечает email подтвержденным и только после этого гасит токен,
// чтобы сбой записи не сжигал ссылку
func (a *Auth) VerifyUser(ctx context.Context, verificationToken string) error {
	const op = "auth.VerifyUser"

	log := a.log.With(slog.String("op", op))

	token, err := a.tokens.Check(ctx, models.TokenVerification, verificationToken)
	if err != nil {
		log.Info("verification token rejected", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userByEmail(ctx, op, token.Email)
	if err != nil {
		return err
	}

	if err := a.usrSaver.SetEmailVerified(ctx, user.ID, token.Email, a.now()); err != nil {
		log.Error("failed to update verification status in database", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	if err := a.tokens.Consume(ctx, token); err != nil {
		log.Warn("verification token already spent", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified", slog.String("uid", user.ID))

	return nil
}

// * ResendVerification выпускает новый токен для неподтвержденного пользователя.
// Для уже подтвержденного email ничего не делает.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	user, err := a.userByEmail(ctx, op, email)
	if err != nil {
		return err
	}

	if user.IsVerified() {
		return nil
	}

	if err := a.sendVerification(ctx, user.Email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) userByEmail(ctx context.Context, op, email string) (models.User, error) {
	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		a.log.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.User{}, apperr.Dependency(op, err)
	}

	return user, nil
}
