// Package session issues JWT session tokens and turns them back into
// sessions. The user's role is re-read on every issuance and refresh, so a
// role change takes effect on the next refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signin_service/internal/lib/apperr"
	jwtlib "signin_service/internal/lib/jwt"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = fmt.Errorf("%w: invalid session", apperr.ErrValidation)

type UserProvider interface {
	UserByID(ctx context.Context, id string) (models.User, error)
}

type EmailVerifier interface {
	SetEmailVerified(ctx context.Context, id, email string, at time.Time) error
}

type Manager struct {
	log      *slog.Logger
	users    UserProvider
	verifier EmailVerifier
	secret   string
	ttl      time.Duration
	now      func() time.Time
}

func New(
	log *slog.Logger,
	users UserProvider,
	verifier EmailVerifier,
	secret string,
	ttl time.Duration,
) *Manager {
	return &Manager{
		log:      log,
		users:    users,
		verifier: verifier,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}
}

// * EnrichClaims перечитывает пользователя по subject и добавляет роль в claims
func (m *Manager) EnrichClaims(ctx context.Context, claims *jwtlib.Claims) error {
	const op = "session.Manager.EnrichClaims"

	if claims == nil || claims.Subject == "" {
		return nil
	}

	user, err := m.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}

		m.log.Error("failed to load user", slog.String("op", op), sl.Err(err))
		return apperr.Dependency(op, err)
	}

	claims.Role = user.Role

	return nil
}

// MaterializeSession copies the subject and role from claims into the
// session user. Each field is copied only when both sides are present.
func MaterializeSession(claims *jwtlib.Claims, s *models.Session) {
	if claims == nil || s == nil {
		return
	}

	if claims.Subject != "" && s.User != nil {
		s.User.ID = claims.Subject
	}

	if claims.Role != "" && s.User != nil {
		s.User.Role = claims.Role
	}
}

// * LinkAccount вызывается при привязке OAuth аккаунта: помечает email подтвержденным
func (m *Manager) LinkAccount(ctx context.Context, userID string) error {
	const op = "session.Manager.LinkAccount"

	if err := m.verifier.SetEmailVerified(ctx, userID, "", m.now()); err != nil {
		m.log.Error("failed to stamp email verification", slog.String("op", op), sl.Err(err))
		return apperr.Dependency(op, err)
	}

	return nil
}

// * Issue выпускает сессионный токен для пользователя, прошедшего авторизацию
func (m *Manager) Issue(ctx context.Context, user models.User) (string, error) {
	const op = "session.Manager.Issue"

	claims := jwtlib.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		Email:            user.Email,
		Name:             user.Name,
	}

	return m.sign(ctx, op, claims)
}

// * Refresh перевыпускает действующий токен с актуальной ролью
func (m *Manager) Refresh(ctx context.Context, token string) (string, error) {
	const op = "session.Manager.Refresh"

	claims, err := jwtlib.Parse(token, m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalidSession, err)
	}

	return m.sign(ctx, op, jwtlib.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: claims.Subject},
		Email:            claims.Email,
		Name:             claims.Name,
	})
}

// * Session разбирает токен и собирает из него сессию
func (m *Manager) Session(token string) (models.Session, error) {
	const op = "session.Manager.Session"

	claims, err := jwtlib.Parse(token, m.secret)
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidSession, err)
	}

	s := models.Session{
		User: &models.SessionUser{
			Email: claims.Email,
			Name:  claims.Name,
		},
	}
	if claims.ExpiresAt != nil {
		s.Expires = claims.ExpiresAt.Time
	}

	MaterializeSession(claims, &s)

	return s, nil
}

func (m *Manager) sign(ctx context.Context, op string, claims jwtlib.Claims) (string, error) {
	if err := m.EnrichClaims(ctx, &claims); err != nil {
		return "", err
	}

	token, err := jwtlib.NewToken(claims, m.secret, m.ttl, m.now())
	if err != nil {
		return "", apperr.Dependency(op, err)
	}

	return token, nil
}
