// Package apperr defines the error kinds shared by the service layers.
// Domain sentinels wrap one of the kinds so callers can match either.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency failure")
)

// Dependency помечает ошибку внешнего коллаборатора (бд, брокер, хеширование).
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}
