package domain

import (
	"errors"
	"strings"
)

var (
	ErrEmptyPrompt   = errors.New("empty prompt")
	ErrPromptTooLong = errors.New("prompt too long")
	ErrMalformedBody = errors.New("malformed request body")
)

type FieldError struct {
	Field   string
	Message string

	err error
}

func NewFieldError(field, message string, err error) FieldError {
	return FieldError{Field: field, Message: message, err: err}
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// ValidationError - ошибка входных данных, клиент может исправить запрос и повторить
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.String())
	}
	return out
}

func (e *ValidationError) Unwrap() []error {
	var errs []error
	for _, f := range e.Fields {
		if f.err != nil {
			errs = append(errs, f.err)
		}
	}
	return errs
}

// GatewayError оборачивает сбой внешнего провайдера. Cause только для логов.
type GatewayError struct {
	Provider string
	Cause    error
}

func (e *GatewayError) Error() string {
	if e.Provider == "" {
		return "gateway: " + e.Cause.Error()
	}
	return "gateway " + e.Provider + ": " + e.Cause.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}
