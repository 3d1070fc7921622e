// Package signin decides whether an authenticated sign-in attempt may
// proceed to session issuance.
package signin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"
)

const ProviderCredentials = "credentials"

// IsCredentials reports whether provider names the credentials provider,
// ignoring case and surrounding space.
func IsCredentials(provider string) bool {
	return strings.EqualFold(strings.TrimSpace(provider), ProviderCredentials)
}

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

type Attempt struct {
	UserID   string
	Provider string
}

type UserProvider interface {
	UserByID(ctx context.Context, id string) (models.User, error)
}

type ConfirmationStore interface {
	TwoFactorConfirmation(ctx context.Context, userID string) (models.TwoFactorConfirmation, error)
	// DeleteTwoFactorConfirmation deletes c only if it is still the stored
	// confirmation and reports whether it did.
	DeleteTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) (bool, error)
}

type Authorizer struct {
	log           *slog.Logger
	users         UserProvider
	confirmations ConfirmationStore
}

func New(log *slog.Logger, users UserProvider, confirmations ConfirmationStore) *Authorizer {
	return &Authorizer{
		log:           log,
		users:         users,
		confirmations: confirmations,
	}
}

// * Authorize: OAuth провайдеры пропускаются без проверок, для credentials
// * требуется подтвержденный email и, при включенной 2FA, неиспользованное подтверждение.
// Ошибка возвращается только при сбое хранилища, и тогда решение всегда Deny.
func (a *Authorizer) Authorize(ctx context.Context, attempt Attempt) (Decision, error) {
	const op = "signin.Authorizer.Authorize"

	log := a.log.With(
		slog.String("op", op),
		slog.String("provider", attempt.Provider),
		slog.String("user_id", attempt.UserID),
	)

	provider := strings.TrimSpace(attempt.Provider)
	if provider == "" {
		log.Warn("sign-in attempt without provider")
		return Deny, nil
	}

	if !IsCredentials(provider) {
		return Allow, nil
	}

	if attempt.UserID == "" {
		log.Warn("credentials attempt without user id")
		return Deny, nil
	}

	user, err := a.users.UserByID(ctx, attempt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return Deny, nil
		}

		log.Error("failed to load user", sl.Err(err))
		return Deny, apperr.Dependency(op, err)
	}

	if !user.IsVerified() {
		log.Info("email not verified")
		return Deny, nil
	}

	if !user.IsTwoFactorEnabled {
		return Allow, nil
	}

	confirmation, err := a.confirmations.TwoFactorConfirmation(ctx, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrConfirmationNotFound) {
			log.Info("two factor confirmation missing")
			return Deny, nil
		}

		log.Error("failed to load two factor confirmation", sl.Err(err))
		return Deny, apperr.Dependency(op, err)
	}

	// delete before allow: a failed delete must not leave a replayable confirmation
	deleted, err := a.confirmations.DeleteTwoFactorConfirmation(ctx, confirmation)
	if err != nil {
		log.Error("failed to consume two factor confirmation", sl.Err(err))
		return Deny, apperr.Dependency(op, err)
	}

	if !deleted {
		log.Warn("two factor confirmation consumed by a concurrent sign-in")
		return Deny, nil
	}

	return Allow, nil
}
