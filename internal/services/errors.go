package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("callback authentication failed")
	ErrAmountMismatch = fmt.Errorf("%w: amount does not match the pending record", ErrAuthentication)
	ErrStore          = errors.New("store unavailable")
	ErrUnauthorized   = errors.New("invalid credentials")
)

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
