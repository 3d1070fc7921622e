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

var tokenTables = map[models.TokenKind]string{
	models.TokenVerification:  "verification_tokens",
	models.TokenPasswordReset: "password_reset_tokens",
	models.TokenTwoFactor:     "two_factor_tokens",
}

func tokenTable(kind models.TokenKind) (string, error) {
	table, ok := tokenTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", storage.ErrUnknownTokenKind, kind)
	}

	return table, nil
}

// * ReplaceToken в одной транзакции удаляет прежний токен для почты и сохраняет новый.
// Параллельная вставка ловится уникальным индексом по email.
func (s *Storage) ReplaceToken(ctx context.Context, t models.Token) error {
	const op = "storage.postgres.ReplaceToken"

	table, err := tokenTable(t.Kind)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	email := strings.ToLower(t.Email)

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE email = $1`, email); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (id, email, token, expires) VALUES ($1, $2, $3, $4)`,
			t.ID, email, t.Value, t.ExpiresAt,
		)

		return err
	})
	if err != nil {
		if isPgError(err, codeUniqueViolation) {
			return storage.ErrTokenExists
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Token(ctx context.Context, kind models.TokenKind, email string) (models.Token, error) {
	const op = "storage.postgres.Token"

	table, err := tokenTable(kind)
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, email, token, expires FROM ` + table + ` WHERE email = $1`

	return s.token(ctx, op, kind, query, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Storage) TokenByValue(ctx context.Context, kind models.TokenKind, value string) (models.Token, error) {
	const op = "storage.postgres.TokenByValue"

	table, err := tokenTable(kind)
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, email, token, expires FROM ` + table + ` WHERE token = $1`

	return s.token(ctx, op, kind, query, value)
}

func (s *Storage) token(ctx context.Context, op string, kind models.TokenKind, query, arg string) (models.Token, error) {
	t := models.Token{Kind: kind}

	err := s.db.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Email, &t.Value, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Token{}, storage.ErrTokenNotFound
		}

		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// * DeleteToken возвращает false, если токен уже удален другим запросом
func (s *Storage) DeleteToken(ctx context.Context, kind models.TokenKind, id string) (bool, error) {
	const op = "storage.postgres.DeleteToken"

	table, err := tokenTable(kind)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *Storage) DeleteExpiredTokens(ctx context.Context, kind models.TokenKind, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredTokens"

	table, err := tokenTable(kind)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM `+table+` WHERE expires <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
