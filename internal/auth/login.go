package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"signin_service/internal/auth/signin"
	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"
)

type LoginResult struct {
	SessionToken      string
	TwoFactorRequired bool
}

// * Login проверяет пароль, подтверждение email и 2FA, затем выпускает сессию.
// При включенной 2FA первый вызов без кода отправляет код и возвращает TwoFactorRequired.
func (a *Auth) Login(ctx context.Context, email, password, code string) (LoginResult, error) {
	const op = "Auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("user not found")
			return LoginResult{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return LoginResult{}, apperr.Dependency(op, err)
	}

	log = log.With(slog.String("user_id", user.ID))

	if !a.verifier.Verify(password, user.PassHash) {
		log.Info("invalid credentials")
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.IsVerified() {
		if err := a.sendVerification(ctx, user.Email); err != nil {
			return LoginResult{}, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("email not verified, confirmation resent")
		return LoginResult{}, ErrEmailNotVerified
	}

	if user.IsTwoFactorEnabled {
		if code == "" {
			if err := a.twoFactor.Challenge(ctx, user); err != nil {
				return LoginResult{}, fmt.Errorf("%s: %w", op, err)
			}

			return LoginResult{TwoFactorRequired: true}, nil
		}

		if err := a.twoFactor.Confirm(ctx, user, code); err != nil {
			return LoginResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	decision, err := a.authorizer.Authorize(ctx, signin.Attempt{
		UserID:   user.ID,
		Provider: signin.ProviderCredentials,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if decision != signin.Allow {
		log.Warn("sign-in denied")
		return LoginResult{}, ErrAccessDenied
	}

	token, err := a.sessions.Issue(ctx, user)
	if err != nil {
		log.Error("failed to issue session", sl.Err(err))
		return LoginResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully")

	return LoginResult{SessionToken: token}, nil
}

func (a *Auth) sendVerification(ctx context.Context, email string) error {
	token, err := a.tokens.Issue(ctx, models.TokenVerification, email)
	if err != nil {
		return err
	}

	if err := a.mailer.SendVerificationEmail(ctx, email, token.Value); err != nil {
		a.log.Error("failed to send verification email", slog.String("email", email), sl.Err(err))
	}

	return nil
}
