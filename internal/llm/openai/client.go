// Package openai реализует llm.Client поверх официального SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/llm"
)

const (
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
)

type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	Timeout      time.Duration
}

type Client struct {
	sdk    openaisdk.Client
	model  string
	system string
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// SDK по умолчанию ретраит 2 раза, нам нужен ровно один вызов
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		sdk:    openaisdk.NewClient(opts...),
		model:  cfg.Model,
		system: cfg.SystemPrompt,
		logger: logger,
	}
}

func (c *Client) Name() string { return providerName }

func (c *Client) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if c.system != "" {
		messages = append(messages, openaisdk.SystemMessage(c.system))
	}
	messages = append(messages, openaisdk.UserMessage(prompt))

	resp, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    openaisdk.ChatModel(c.model),
	})
	if err != nil {
		return nil, c.mapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llm.ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}

	return &llm.Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// mapError переводит ошибки SDK в наши sentinel-ошибки. Тело ответа только в лог.
func (c *Client) mapError(err error) error {
	var apiErr *openaisdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", llm.ErrRequestFailed, err)
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.Warn("openai rejected credentials",
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return llm.ErrAuthFailed
	case http.StatusTooManyRequests:
		c.logger.Warn("openai rate limited",
			zap.String("code", apiErr.Code),
		)
		return llm.ErrRateLimit
	default:
		c.logger.Error("openai request failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return fmt.Errorf("%w: status %d", llm.ErrRequestFailed, apiErr.StatusCode)
	}
}

var _ llm.Client = (*Client)(nil)
