package service

import (
	"errors"
	"fmt"
)

// Failure kinds returned by the services. Callers match them with errors.Is;
// the wrapped chain keeps the operation name and any underlying cause.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrForbidden           = errors.New("forbidden")
	ErrStaleCredentials    = errors.New("token claims do not match the stored user")
	ErrTooManyRowsAffected = errors.New("too many rows affected")
	ErrStorage             = errors.New("storage failure")
	ErrDemoExists          = errors.New("a demo with this file name already exists")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
