package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/textgen/internal/llm"
)

const DefaultModel = "mock-model"

// Client - провайдер-заглушка: для локального запуска без ключей и для тестов
type Client struct {
	Response   string
	Model      string
	TokensUsed int
	Error      error
	Delay      time.Duration

	mu         sync.Mutex
	callCount  int
	lastPrompt string
}

func New() *Client {
	return &Client{
		Response: "This is a mock completion.",
		Model:    DefaultModel,
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithUsage(model string, tokens int) *Client {
	c.Model = model
	c.TokensUsed = tokens
	return c
}

func (c *Client) Name() string { return "mock" }

func (c *Client) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	c.mu.Lock()
	c.callCount++
	c.lastPrompt = prompt
	c.mu.Unlock()

	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Delay):
		}
	}

	if c.Error != nil {
		return nil, c.Error
	}
	if c.Response == "" {
		return nil, llm.ErrEmptyResponse
	}

	return &llm.Completion{
		Text:       c.Response,
		Model:      c.Model,
		TokensUsed: c.TokensUsed,
	}, nil
}

func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCount
}

func (c *Client) LastPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrompt
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callCount = 0
	c.lastPrompt = ""
}

var _ llm.Client = (*Client)(nil)
