package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/google/uuid"
)

// * RegisterNewUser создает неподтвержденного пользователя и отправляет письмо верификации
func (a *Auth) RegisterNewUser(ctx context.Context, email, name, pass string) (string, error) {
	const op = "auth.RegisterNewUser"

	log := a.log.With(slog.String("op", op))

	log.Info("Registering new user")

	email = strings.ToLower(strings.TrimSpace(email))

	_, err := a.usrProvider.User(ctx, email)
	if err == nil {
		log.Warn("User already exists")
		return "", fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to check existing user", sl.Err(err))
		return "", apperr.Dependency(op, err)
	}

	passHash, err := a.hasher.Hash(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return "", apperr.Dependency(op, err)
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Name:     name,
		PassHash: passHash,
		Role:     models.RoleUser,
	}

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("User already exists")
			return "", fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("Failed to save user", sl.Err(err))
		return "", apperr.Dependency(op, err)
	}

	if err := a.sendVerification(ctx, email); err != nil {
		log.Error("failed to issue verification token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("User registered", slog.String("uid", user.ID))

	return user.ID, nil
}
