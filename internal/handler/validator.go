package handler

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to Echo's Validator
// interface so request DTOs can declare `validate` tags and handlers can
// call c.Validate(&req).
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator builds the validator used by the Echo instance.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
