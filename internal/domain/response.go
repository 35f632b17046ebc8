package domain

import "time"

type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryAPIError   ErrorCategory = "api_error"
	CategoryInternal   ErrorCategory = "internal_error"
)

const (
	MsgValidationFailed = "Request validation failed. Please check your input."
	MsgGenerationFailed = "Failed to generate text. Please try again later."
	MsgInternalError    = "An unexpected error occurred. Please try again later."
)

type ErrorResponse struct {
	Category    ErrorCategory `json:"category"`
	Message     string        `json:"message"`
	FieldErrors []string      `json:"fieldErrors,omitempty"`
	Path        string        `json:"path"`
	Timestamp   time.Time     `json:"timestamp"`
}

func NewValidationErrorResponse(err *ValidationError, path string) *ErrorResponse {
	return &ErrorResponse{
		Category:    CategoryValidation,
		Message:     MsgValidationFailed,
		FieldErrors: err.Messages(),
		Path:        path,
		Timestamp:   time.Now().UTC(),
	}
}

func NewAPIErrorResponse(path string) *ErrorResponse {
	return &ErrorResponse{
		Category:  CategoryAPIError,
		Message:   MsgGenerationFailed,
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalErrorResponse(path string) *ErrorResponse {
	return &ErrorResponse{
		Category:  CategoryInternal,
		Message:   MsgInternalError,
		Path:      path,
		Timestamp: time.Now().UTC(),
	}
}
