package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/llm"
)

const providerName = "openrouter"

// Config подходит для любого OpenAI-совместимого endpoint (OpenRouter, vLLM, LM Studio)
type Config struct {
	APIKey       string
	Model        string
	BaseURL      string
	SystemPrompt string
	Timeout      time.Duration
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	system  string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek/deepseek-chat"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		system:  cfg.SystemPrompt,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) Name() string { return providerName }

type openRouterResponse struct {
	llm.ChatResponse
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (c *Client) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	body, err := json.Marshal(llm.NewChatRequest(c.model, c.system, prompt))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/kitbuilder587/textgen")
	httpReq.Header.Set("X-Title", "textgen")

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return nil, err
	}

	if statusCode != http.StatusOK {
		return nil, llm.HandleHTTPError(statusCode, respBody, c.logger, providerName)
	}

	var chatResp openRouterResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// OpenRouter иногда отдает 200 с ошибкой внутри тела
	if chatResp.Error != nil {
		c.logger.Error("openrouter returned error payload",
			zap.String("type", chatResp.Error.Type),
			zap.String("message", chatResp.Error.Message),
		)
		return nil, fmt.Errorf("%w: %s", llm.ErrRequestFailed, chatResp.Error.Type)
	}

	return llm.ExtractCompletion(&chatResp.ChatResponse, c.model)
}

var _ llm.Client = (*Client)(nil)
