package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/padraicbc/demoapi/service"
)

// Request field limits.
const (
	UsernameMinLength = 1
	UsernameMaxLength = 64
	PasswordMinLength = 8
	PasswordMaxLength = 256
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator for the request structs of this package.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks struct tags and reports failures as service.ErrValidation.
func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %s", service.ErrValidation, err)
	}
	return nil
}
