package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrInvalid    = errors.New("invalid entry")
	ErrConflict   = errors.New("conflict")
	ErrVaultState = errors.New("not a usable vault directory")
)
