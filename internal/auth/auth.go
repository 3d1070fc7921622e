package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"signin_service/internal/auth/signin"
	"signin_service/internal/lib/apperr"
	"signin_service/internal/models"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrAccessDenied          = errors.New("access denied")
	ErrUserExists            = fmt.Errorf("%w: email already in use", apperr.ErrConflict)
	ErrUserNotFound          = fmt.Errorf("%w: email does not exist", apperr.ErrNotFound)
	ErrOAuthAccountNotLinked = fmt.Errorf("%w: email is linked to another sign-in method", apperr.ErrConflict)
	ErrInvalidProfile        = fmt.Errorf("%w: invalid oauth profile", apperr.ErrValidation)
	ErrInvalidRole           = fmt.Errorf("%w: invalid role", apperr.ErrValidation)
	ErrRoleChangeForbidden   = errors.New("only admins can change role")
)

type UserSaver interface {
	SaveUser(ctx context.Context, u models.User) error
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) error
	SetEmailVerified(ctx context.Context, id, email string, at time.Time) error
	LinkAccount(ctx context.Context, a models.Account) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	Account(ctx context.Context, provider, providerAccountID string) (models.Account, error)
}

type PasswordVerifier interface {
	Verify(plaintext string, storedHash []byte) bool
}

type PasswordHasher interface {
	Hash(plaintext string) ([]byte, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, kind models.TokenKind, email string) (models.Token, error)
	Check(ctx context.Context, kind models.TokenKind, value string) (models.Token, error)
	Consume(ctx context.Context, token models.Token) error
}

type TwoFactor interface {
	Challenge(ctx context.Context, user models.User) error
	Confirm(ctx context.Context, user models.User, code string) error
}

type Authorizer interface {
	Authorize(ctx context.Context, attempt signin.Attempt) (signin.Decision, error)
}

type Sessions interface {
	Issue(ctx context.Context, user models.User) (string, error)
	LinkAccount(ctx context.Context, userID string) error
}

type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}

type Deps struct {
	UserSaver    UserSaver
	UserProvider UserProvider
	Verifier     PasswordVerifier
	Hasher       PasswordHasher
	Tokens       TokenIssuer
	TwoFactor    TwoFactor
	Authorizer   Authorizer
	Sessions     Sessions
	Mailer       Mailer
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	verifier    PasswordVerifier
	hasher      PasswordHasher
	tokens      TokenIssuer
	twoFactor   TwoFactor
	authorizer  Authorizer
	sessions    Sessions
	mailer      Mailer
	now         func() time.Time
}

func New(log *slog.Logger, deps Deps) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    deps.UserSaver,
		usrProvider: deps.UserProvider,
		verifier:    deps.Verifier,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		twoFactor:   deps.TwoFactor,
		authorizer:  deps.Authorizer,
		sessions:    deps.Sessions,
		mailer:      deps.Mailer,
		now:         time.Now,
	}
}
