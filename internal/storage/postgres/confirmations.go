package postgres

import (
	"context"
	"errors"
	"fmt"

	"signin_service/internal/models"
	"signin_service/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (s *Storage) SaveTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) error {
	const op = "storage.postgres.SaveTwoFactorConfirmation"

	const query = `
		INSERT INTO two_factor_confirmations (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET id = EXCLUDED.id
	`

	if _, err := s.db.Exec(ctx, query, c.ID, c.UserID); err != nil {
		if isPgError(err, codeForeignKeyViolation) {
			return storage.ErrUserNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) TwoFactorConfirmation(ctx context.Context, userID string) (models.TwoFactorConfirmation, error) {
	const op = "storage.postgres.TwoFactorConfirmation"

	const query = `SELECT id, user_id FROM two_factor_confirmations WHERE user_id = $1`

	var c models.TwoFactorConfirmation

	if err := s.db.QueryRow(ctx, query, userID).Scan(&c.ID, &c.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.TwoFactorConfirmation{}, storage.ErrConfirmationNotFound
		}

		return models.TwoFactorConfirmation{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// * DeleteTwoFactorConfirmation удаляет именно это подтверждение; false значит, что его уже погасили
func (s *Storage) DeleteTwoFactorConfirmation(ctx context.Context, c models.TwoFactorConfirmation) (bool, error) {
	const op = "storage.postgres.DeleteTwoFactorConfirmation"

	const query = `DELETE FROM two_factor_confirmations WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, c.ID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}
