package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const MaxPromptLength = 2000

type GenerateRequest struct {
	Prompt string `json:"prompt" validate:"required,notblank,max=2000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// в ошибках хотим имена из json, а не из Go
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
	return v
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validate проверяет запрос до обращения к провайдеру.
// Длина считается в символах по исходной (не обрезанной) строке.
func (r *GenerateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, toFieldError(fe))
	}
	return NewValidationError(fields...)
}

func (r *GenerateRequest) Sanitize() {
	r.Prompt = strings.TrimSpace(r.Prompt)
}

func toFieldError(fe validator.FieldError) FieldError {
	switch fe.Tag() {
	case "required":
		return FieldError{Field: fe.Field(), Message: "must not be empty", err: ErrEmptyPrompt}
	case "notblank":
		return FieldError{Field: fe.Field(), Message: "must not be blank", err: ErrEmptyPrompt}
	case "max":
		return FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("must be at most %s characters", fe.Param()),
			err:     ErrPromptTooLong,
		}
	default:
		return FieldError{Field: fe.Field(), Message: "is invalid"}
	}
}

type GenerateResponse struct {
	Response   string    `json:"response"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokensUsed"`
}

func NewGenerateResponse(text, model string, tokensUsed int, now time.Time) *GenerateResponse {
	if tokensUsed < 0 {
		tokensUsed = 0
	}
	return &GenerateResponse{
		Response:   text,
		Model:      model,
		Timestamp:  now.UTC(),
		TokensUsed: tokensUsed,
	}
}
