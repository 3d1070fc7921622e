package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, password_hash, email_verified, role, is_two_factor_enabled`

func (s *Storage) SaveUser(ctx context.Context, u models.User) error {
	const op = "storage.postgres.SaveUser"

	const query = `
		INSERT INTO users (id, email, name, password_hash, email_verified, role, is_two_factor_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		u.ID,
		strings.ToLower(u.Email),
		u.Name,
		u.PassHash,
		u.EmailVerified,
		string(u.Role),
		u.IsTwoFactorEnabled,
	)
	if err != nil {
		if isPgError(err, codeUniqueViolation) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (s *Storage) User(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.User"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Storage) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// * SetEmailVerified отмечает email подтвержденным; пустой email оставляет текущий
func (s *Storage) SetEmailVerified(ctx context.Context, id, email string, at time.Time) error {
	const op = "storage.postgres.SetEmailVerified"

	const query = `
		UPDATE users
		SET email_verified = $2, email = COALESCE(NULLIF($3::text, ''), email)
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query, id, at, strings.ToLower(email))
	if err != nil {
		if isPgError(err, codeUniqueViolation) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) error {
	const op = "storage.postgres.UpdateUser"

	// смена email сбрасывает подтверждение
	const query = `
		UPDATE users SET
			name = COALESCE($2, name),
			email_verified = CASE
				WHEN $3::text IS NOT NULL AND $3::text <> email THEN NULL
				ELSE email_verified
			END,
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			role = COALESCE($5, role),
			is_two_factor_enabled = COALESCE($6, is_two_factor_enabled)
		WHERE id = $1
	`

	var email, role *string
	if upd.Email != nil {
		e := strings.ToLower(*upd.Email)
		email = &e
	}
	if upd.Role != nil {
		r := string(*upd.Role)
		role = &r
	}

	tag, err := s.db.Exec(ctx, query, id, upd.Name, email, upd.PassHash, role, upd.IsTwoFactorEnabled)
	if err != nil {
		if isPgError(err, codeUniqueViolation) {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) LinkAccount(ctx context.Context, a models.Account) error {
	const op = "storage.postgres.LinkAccount"

	const query = `
		INSERT INTO accounts (id, user_id, type, provider, provider_account_id)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query, a.ID, a.UserID, a.Type, a.Provider, a.ProviderAccountID)
	if err != nil {
		switch {
		case isPgError(err, codeUniqueViolation):
			return storage.ErrAccountExists
		case isPgError(err, codeForeignKeyViolation):
			return storage.ErrUserNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Account(ctx context.Context, provider, providerAccountID string) (models.Account, error) {
	const op = "storage.postgres.Account"

	const query = `
		SELECT id, user_id, type, provider, provider_account_id
		FROM accounts
		WHERE provider = $1 AND provider_account_id = $2
	`

	var a models.Account

	err := s.db.QueryRow(ctx, query, provider, providerAccountID).Scan(
		&a.ID,
		&a.UserID,
		&a.Type,
		&a.Provider,
		&a.ProviderAccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u    models.User
		role string
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PassHash,
		&u.EmailVerified,
		&role,
		&u.IsTwoFactorEnabled,
	)
	if err != nil {
		return models.User{}, err
	}

	u.Role = models.Role(role)

	return u, nil
}
