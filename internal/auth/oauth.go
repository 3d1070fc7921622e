package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"signin_service/internal/auth/signin"
	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/google/uuid"
)

// OAuthProfile is a provider identity already proven by an external OAuth adapter.
type OAuthProfile struct {
	Provider          string
	ProviderAccountID string
	Type              string
	Email             string
	Name              string
}

// * SignInWithOAuth находит или создает пользователя по профилю провайдера и выпускает сессию.
// Email провайдера считается подтвержденным.
func (a *Auth) SignInWithOAuth(ctx context.Context, profile OAuthProfile) (string, error) {
	const op = "auth.SignInWithOAuth"

	log := a.log.With(
		slog.String("op", op),
		slog.String("provider", profile.Provider),
	)

	if strings.TrimSpace(profile.Provider) == "" || signin.IsCredentials(profile.Provider) ||
		profile.ProviderAccountID == "" || profile.Email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidProfile)
	}

	user, err := a.oauthUser(ctx, op, profile)
	if err != nil {
		return "", err
	}

	decision, err := a.authorizer.Authorize(ctx, signin.Attempt{
		UserID:   user.ID,
		Provider: profile.Provider,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if decision != signin.Allow {
		log.Warn("sign-in denied", slog.String("user_id", user.ID))
		return "", ErrAccessDenied
	}

	token, err := a.sessions.Issue(ctx, user)
	if err != nil {
		log.Error("failed to issue session", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (a *Auth) oauthUser(ctx context.Context, op string, profile OAuthProfile) (models.User, error) {
	log := a.log.With(slog.String("op", op))

	account, err := a.usrProvider.Account(ctx, profile.Provider, profile.ProviderAccountID)
	switch {
	case err == nil:
		user, err := a.usrProvider.UserByID(ctx, account.UserID)
		if err != nil {
			log.Error("linked user lookup failed", sl.Err(err))
			return models.User{}, apperr.Dependency(op, err)
		}

		return user, nil
	case !errors.Is(err, storage.ErrAccountNotFound):
		log.Error("failed to get account", sl.Err(err))
		return models.User{}, apperr.Dependency(op, err)
	}

	email := strings.ToLower(strings.TrimSpace(profile.Email))

	_, err = a.usrProvider.User(ctx, email)
	if err == nil {
		log.Info("email belongs to an account without this provider")
		return models.User{}, fmt.Errorf("%s: %w", op, ErrOAuthAccountNotLinked)
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to get user", sl.Err(err))
		return models.User{}, apperr.Dependency(op, err)
	}

	user := models.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  profile.Name,
		Role:  models.RoleUser,
	}

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrOAuthAccountNotLinked)
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, apperr.Dependency(op, err)
	}

	accountType := profile.Type
	if accountType == "" {
		accountType = "oauth"
	}

	if err := a.usrSaver.LinkAccount(ctx, models.Account{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Type:              accountType,
		Provider:          profile.Provider,
		ProviderAccountID: profile.ProviderAccountID,
	}); err != nil {
		log.Error("failed to link account", sl.Err(err))
		return models.User{}, apperr.Dependency(op, err)
	}

	if err := a.sessions.LinkAccount(ctx, user.ID); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("oauth user created", slog.String("uid", user.ID))

	return user, nil
}
