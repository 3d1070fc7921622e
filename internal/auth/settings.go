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
)

type Settings struct {
	Name               *string
	Email              *string
	Role               *models.Role
	IsTwoFactorEnabled *bool
	Password           *string
	NewPassword        *string
}

// * UpdateSettings применяет изменения профиля.
// Для OAuth-пользователей email, пароль и 2FA игнорируются.
// Менять роль может только администратор.
func (a *Auth) UpdateSettings(ctx context.Context, userID string, in Settings) error {
	const op = "auth.UpdateSettings"

	log := a.log.With(slog.String("op", op), slog.String("user_id", userID))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		log.Error("failed to get user", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	if user.IsOAuthOnly() {
		in.Email = nil
		in.Password = nil
		in.NewPassword = nil
		in.IsTwoFactorEnabled = nil
	}

	upd := models.UserUpdate{
		Name:               in.Name,
		IsTwoFactorEnabled: in.IsTwoFactorEnabled,
	}

	if in.Role != nil && *in.Role != user.Role {
		if !in.Role.Valid() {
			return fmt.Errorf("%s: %w", op, ErrInvalidRole)
		}
		// роль в сессии может быть устаревшей, решаем по свежей записи
		if user.Role != models.RoleAdmin {
			log.Warn("role change rejected", slog.String("role", string(*in.Role)))
			return fmt.Errorf("%s: %w", op, ErrRoleChangeForbidden)
		}
		upd.Role = in.Role
	}

	if in.Password != nil && in.NewPassword != nil {
		if !a.verifier.Verify(*in.Password, user.PassHash) {
			log.Info("current password mismatch")
			return ErrInvalidCredentials
		}

		passHash, err := a.hasher.Hash(*in.NewPassword)
		if err != nil {
			log.Error("failed to generate password hash", sl.Err(err))
			return apperr.Dependency(op, err)
		}
		upd.PassHash = passHash
	}

	var emailChanged bool
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != user.Email {
			upd.Email = &email
			emailChanged = true
		}
	}

	if err := a.usrSaver.UpdateUser(ctx, user.ID, upd); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to update user", sl.Err(err))
		return apperr.Dependency(op, err)
	}

	if emailChanged {
		if err := a.sendVerification(ctx, *upd.Email); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("settings updated")

	return nil
}

// * CurrentUser возвращает актуальные данные пользователя
func (a *Auth) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	const op = "auth.CurrentUser"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return models.User{}, apperr.Dependency(op, err)
	}

	return user, nil
}
