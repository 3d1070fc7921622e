package models

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                 string
	Email              string
	Name               string
	PassHash           []byte
	EmailVerified      *time.Time
	Role               Role
	IsTwoFactorEnabled bool
}

// * IsVerified сообщает, подтвержден ли email пользователя
func (u User) IsVerified() bool {
	return u.EmailVerified != nil
}

// * IsOAuthOnly true для аккаунтов без пароля (вход только через провайдера)
func (u User) IsOAuthOnly() bool {
	return len(u.PassHash) == 0
}

type Account struct {
	ID                string
	UserID            string
	Type              string
	Provider          string
	ProviderAccountID string
}

type TokenKind string

const (
	TokenVerification  TokenKind = "verification"
	TokenPasswordReset TokenKind = "password_reset"
	TokenTwoFactor     TokenKind = "two_factor"
)

var TokenKinds = []TokenKind{TokenVerification, TokenPasswordReset, TokenTwoFactor}

type Token struct {
	ID        string
	Kind      TokenKind
	Email     string
	Value     string
	ExpiresAt time.Time
}

// * IsExpired: токен считается истекшим начиная с момента ExpiresAt включительно
func (t Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type TwoFactorConfirmation struct {
	ID     string
	UserID string
}

const (
	PurposeVerification  = "verification"
	PurposePasswordReset = "password_reset"
	PurposeTwoFactor     = "2fa"
)

type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link,omitempty"`
	Code    string `json:"code,omitempty"`
	Purpose string `json:"purpose"`
}

type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

type Session struct {
	User    *SessionUser `json:"user"`
	Expires time.Time    `json:"expires"`
}

// UserUpdate - частичное обновление пользователя, nil поля не меняются.
// Смена email сбрасывает EmailVerified.
type UserUpdate struct {
	Name               *string
	Email              *string
	PassHash           []byte
	Role               *Role
	IsTwoFactorEnabled *bool
}
