package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

// Completion - результат одного вызова провайдера.
// Model и TokensUsed берутся из ответа, если провайдер их прислал.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

type Client interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Name() string
}
