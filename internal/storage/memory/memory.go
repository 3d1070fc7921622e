// Package memory is an in-process implementation of the storage contracts.
// It backs the "memory" storage driver for local runs and the service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"signin_service/internal/models"
	"signin_service/internal/storage"
)

type tokenKey struct {
	kind  models.TokenKind
	email string
}

type Storage struct {
	mu            sync.Mutex
	users         map[string]models.User
	accounts      map[string]models.Account
	tokens        map[tokenKey]models.Token
	confirmations map[string]models.TwoFactorConfirmation
}

func New() *Storage {
	return &Storage{
		users:         make(map[string]models.User),
		accounts:      make(map[string]models.Account),
		tokens:        make(map[tokenKey]models.Token),
		confirmations: make(map[string]models.TwoFactorConfirmation),
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Storage) SaveUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if normalize(existing.Email) == normalize(u.Email) {
			return storage.ErrUserExists
		}
	}

	s.users[u.ID] = u

	return nil
}

func (s *Storage) User(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if normalize(u.Email) == normalize(email) {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Storage) UserByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *Storage) SetEmailVerified(_ context.Context, id, email string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	if email != "" {
		u.Email = email
	}
	u.EmailVerified = &at
	s.users[id] = u

	return nil
}

func (s *Storage) UpdateUser(_ context.Context, id string, upd models.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}

	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil && normalize(*upd.Email) != normalize(u.Email) {
		for otherID, other := range s.users {
			if otherID != id && normalize(other.Email) == normalize(*upd.Email) {
				return storage.ErrUserExists
			}
		}
		u.Email = *upd.Email
		u.EmailVerified = nil
	}
	if upd.PassHash != nil {
		u.PassHash = upd.PassHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.IsTwoFactorEnabled != nil {
		u.IsTwoFactorEnabled = *upd.IsTwoFactorEnabled
	}
	s.users[id] = u

	return nil
}

func (s *Storage) LinkAccount(_ context.Context, a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := a.Provider + ":" + a.ProviderAccountID
	if _, ok := s.accounts[key]; ok {
		return storage.ErrAccountExists
	}
	if _, ok := s.users[a.UserID]; !ok {
		return storage.ErrUserNotFound
	}

	s.accounts[key] = a

	return nil
}

func (s *Storage) Account(_ context.Context, provider, providerAccountID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[provider+":"+providerAccountID]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return a, nil
}

func (s *Storage) ReplaceToken(_ context.Context, t models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tokenKey{kind: t.Kind, email: normalize(t.Email)}] = t

	return nil
}

func (s *Storage) Token(_ context.Context, kind models.TokenKind, email string) (models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenKey{kind: kind, email: normalize(email)}]
	if !ok {
		return models.Token{}, storage.ErrTokenNotFound
	}

	return t, nil
}

func (s *Storage) TokenByValue(_ context.Context, kind models.TokenKind, value string) (models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tokens {
		if key.kind == kind && t.Value == value {
			return t, nil
		}
	}

	return models.Token{}, storage.ErrTokenNotFound
}

func (s *Storage) DeleteToken(_ context.Context, kind models.TokenKind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tokens {
		if key.kind == kind && t.ID == id {
			delete(s.tokens, key)
			return true, nil
		}
	}

	return false, nil
}

func (s *Storage) DeleteExpiredTokens(_ context.Context, kind models.TokenKind, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, t := range s.tokens {
		if key.kind == kind && t.IsExpired(now) {
			delete(s.tokens, key)
			n++
		}
	}

	return n, nil
}

// Tokens returns every stored token of kind for email. Used to assert the
// one-token-per-email invariant.
func (s *Storage) Tokens(kind models.TokenKind, email string) []models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Token
	for key, t := range s.tokens {
		if key.kind == kind && key.email == normalize(email) {
			out = append(out, t)
		}
	}

	return out
}

func (s *Storage) SaveTwoFactorConfirmation(_ context.Context, c models.TwoFactorConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmations[c.UserID] = c

	return nil
}

func (s *Storage) TwoFactorConfirmation(_ context.Context, userID string) (models.TwoFactorConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.confirmations[userID]
	if !ok {
		return models.TwoFactorConfirmation{}, storage.ErrConfirmationNotFound
	}

	return c, nil
}

func (s *Storage) DeleteTwoFactorConfirmation(_ context.Context, c models.TwoFactorConfirmation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.confirmations[c.UserID]
	if !ok || existing.ID != c.ID {
		return false, nil
	}

	delete(s.confirmations, c.UserID)

	return true, nil
}
