package storage

import (
	"errors"
	"fmt"

	"signin_service/internal/lib/apperr"
)

var (
	ErrUserNotFound         = fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	ErrUserExists           = fmt.Errorf("%w: user already exists", apperr.ErrConflict)
	ErrAccountNotFound      = fmt.Errorf("%w: account not found", apperr.ErrNotFound)
	ErrAccountExists        = fmt.Errorf("%w: account already linked", apperr.ErrConflict)
	ErrTokenNotFound        = fmt.Errorf("%w: token not found", apperr.ErrNotFound)
	ErrTokenExists          = fmt.Errorf("%w: token already exists", apperr.ErrConflict)
	ErrConfirmationNotFound = fmt.Errorf("%w: two factor confirmation not found", apperr.ErrNotFound)
	ErrUnknownTokenKind     = errors.New("unknown token kind")
)
