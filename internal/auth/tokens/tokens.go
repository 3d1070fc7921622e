// Package tokens issues and redeems single-use tokens: email verification
// links, password reset links and two-factor codes. There is at most one
// outstanding token per (kind, email).
package tokens

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"signin_service/internal/lib/apperr"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrTokenNotFound = fmt.Errorf("%w: token does not exist", apperr.ErrNotFound)
	ErrTokenExpired  = fmt.Errorf("%w: token has expired", apperr.ErrValidation)
	ErrInvalidCode   = fmt.Errorf("%w: invalid code", apperr.ErrValidation)
	ErrConflict      = fmt.Errorf("%w: concurrent token issuance", apperr.ErrConflict)
	ErrUnknownKind   = fmt.Errorf("%w: unknown token kind", apperr.ErrValidation)
)

type Store interface {
	// ReplaceToken atomically removes any token of the same kind and email
	// and stores the new one.
	ReplaceToken(ctx context.Context, token models.Token) error
	Token(ctx context.Context, kind models.TokenKind, email string) (models.Token, error)
	TokenByValue(ctx context.Context, kind models.TokenKind, value string) (models.Token, error)
	// DeleteToken reports false when the token was already gone.
	DeleteToken(ctx context.Context, kind models.TokenKind, id string) (bool, error)
}

type Generator func() (string, error)

type Policy struct {
	TTL      time.Duration
	Generate Generator
}

type TTLs struct {
	Verification  time.Duration
	PasswordReset time.Duration
	TwoFactor     time.Duration
}

type Issuer struct {
	log      *slog.Logger
	store    Store
	policies map[models.TokenKind]Policy
	now      func() time.Time
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func WithPolicy(kind models.TokenKind, p Policy) Option {
	return func(i *Issuer) {
		i.policies[kind] = p
	}
}

func New(log *slog.Logger, store Store, ttls TTLs, opts ...Option) *Issuer {
	i := &Issuer{
		log:   log,
		store: store,
		policies: map[models.TokenKind]Policy{
			models.TokenVerification:  {TTL: ttls.Verification, Generate: UUIDValue},
			models.TokenPasswordReset: {TTL: ttls.PasswordReset, Generate: UUIDValue},
			models.TokenTwoFactor:     {TTL: ttls.TwoFactor, Generate: NumericCode(6)},
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// * Issue генерирует новый токен и заменяет им предыдущий для той же почты
func (i *Issuer) Issue(ctx context.Context, kind models.TokenKind, email string) (models.Token, error) {
	const op = "tokens.Issuer.Issue"

	log := i.log.With(slog.String("op", op), slog.String("kind", string(kind)))

	policy, ok := i.policies[kind]
	if !ok {
		return models.Token{}, fmt.Errorf("%s: %w", op, ErrUnknownKind)
	}

	value, err := policy.Generate()
	if err != nil {
		log.Error("failed to generate token value", sl.Err(err))
		return models.Token{}, apperr.Dependency(op, err)
	}

	token := models.Token{
		ID:        uuid.NewString(),
		Kind:      kind,
		Email:     email,
		Value:     value,
		ExpiresAt: i.now().Add(policy.TTL),
	}

	if err := i.store.ReplaceToken(ctx, token); err != nil {
		if errors.Is(err, storage.ErrTokenExists) {
			log.Warn("concurrent token issuance detected")
			return models.Token{}, fmt.Errorf("%s: %w", op, ErrConflict)
		}

		log.Error("failed to save token", sl.Err(err))
		return models.Token{}, apperr.Dependency(op, err)
	}

	log.Debug("token issued", slog.Time("expires_at", token.ExpiresAt))

	return token, nil
}

// * Redeem находит токен по значению, проверяет срок и удаляет его (одноразовый)
func (i *Issuer) Redeem(ctx context.Context, kind models.TokenKind, value string) (models.Token, error) {
	const op = "tokens.Issuer.Redeem"

	token, err := i.lookup(ctx, op, kind, value)
	if err != nil {
		return models.Token{}, err
	}

	return i.consume(ctx, op, token, ErrTokenNotFound)
}

// Check returns the live token with the given value without consuming it.
// Callers that must apply a side effect before the token is spent pair it
// with Consume.
func (i *Issuer) Check(ctx context.Context, kind models.TokenKind, value string) (models.Token, error) {
	return i.lookup(ctx, "tokens.Issuer.Check", kind, value)
}

// Consume deletes a token obtained from Check. It fails with
// ErrTokenNotFound when the token was already spent.
func (i *Issuer) Consume(ctx context.Context, token models.Token) error {
	_, err := i.consume(ctx, "tokens.Issuer.Consume", token, ErrTokenNotFound)
	return err
}

// * RedeemCode проверяет код, выданный на конкретную почту (2FA)
func (i *Issuer) RedeemCode(ctx context.Context, kind models.TokenKind, email, code string) (models.Token, error) {
	const op = "tokens.Issuer.RedeemCode"

	token, err := i.store.Token(ctx, kind, email)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return models.Token{}, fmt.Errorf("%s: %w", op, ErrInvalidCode)
		}

		return models.Token{}, apperr.Dependency(op, err)
	}

	if subtle.ConstantTimeCompare([]byte(token.Value), []byte(code)) != 1 {
		return models.Token{}, fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}

	if token.IsExpired(i.now()) {
		return models.Token{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	// a code spent by a concurrent login is just a wrong code for this one
	return i.consume(ctx, op, token, ErrInvalidCode)
}

func (i *Issuer) lookup(ctx context.Context, op string, kind models.TokenKind, value string) (models.Token, error) {
	token, err := i.store.TokenByValue(ctx, kind, value)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return models.Token{}, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return models.Token{}, apperr.Dependency(op, err)
	}

	if token.IsExpired(i.now()) {
		return models.Token{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	return token, nil
}

// consume deletes token and fails with lost when a concurrent redeem
// deleted it first.
func (i *Issuer) consume(ctx context.Context, op string, token models.Token, lost error) (models.Token, error) {
	deleted, err := i.store.DeleteToken(ctx, token.Kind, token.ID)
	if err != nil {
		return models.Token{}, apperr.Dependency(op, err)
	}

	if !deleted {
		return models.Token{}, fmt.Errorf("%s: %w", op, lost)
	}

	return token, nil
}

func UUIDValue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NumericCode returns a generator of uniformly random codes with exactly
// digits digits and no leading zero.
func NumericCode(digits int) Generator {
	return func() (string, error) {
		low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
		span := new(big.Int).Mul(low, big.NewInt(9))

		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return "", err
		}

		return n.Add(n, low).String(), nil
	}
}
