package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/llm"
)

const (
	providerName = "gigachat"
	defaultModel = "GigaChat"

	// токен обновляем заранее, чтобы не словить 401 посреди запроса
	tokenRefreshSkew = 5 * time.Minute
)

type Config struct {
	AuthKey      string // готовый ключ авторизации (предпочтительно)
	ClientID     string // альтернатива: будет base64(id:secret)
	ClientSecret string
	Scope        string
	AuthURL      string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration

	// InsecureTLS отключает проверку сертификата. Только если корневой
	// сертификат Минцифры не установлен в системе.
	InsecureTLS bool
}

type Client struct {
	authKey string
	scope   string
	authURL string
	baseURL string
	model   string
	system  string
	client  *http.Client
	logger  *zap.Logger

	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	if cfg.Scope == "" {
		cfg.Scope = "GIGACHAT_API_PERS"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureTLS {
		logger.Warn("gigachat TLS certificate verification disabled")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	authKey := cfg.AuthKey
	if authKey == "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		authKey = base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
	}

	return &Client{
		authKey: authKey,
		scope:   cfg.Scope,
		authURL: cfg.AuthURL,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		system:  cfg.SystemPrompt,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:  logger,
	}
}

func (c *Client) Name() string { return providerName }

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Complete делает один вызов chat/completions. Единственный повтор - после 401,
// когда сервер отозвал токен раньше срока; это обновление сессии, а не retry.
func (c *Client) Complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	completion, err := c.complete(ctx, prompt)
	if err != errTokenRejected {
		return completion, err
	}

	c.invalidateToken()
	completion, err = c.complete(ctx, prompt)
	if err == errTokenRejected {
		return nil, llm.ErrAuthFailed
	}
	return completion, err
}

var errTokenRejected = fmt.Errorf("%w: token rejected", llm.ErrAuthFailed)

func (c *Client) complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(llm.NewChatRequest(c.model, c.system, prompt))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return nil, err
	}

	if statusCode == http.StatusUnauthorized {
		return nil, errTokenRejected
	}
	if statusCode != http.StatusOK {
		return nil, llm.HandleHTTPError(statusCode, respBody, c.logger, providerName)
	}

	chatResp, err := llm.ParseChatResponse(respBody)
	if err != nil {
		return nil, err
	}

	return llm.ExtractCompletion(chatResp, c.model)
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.tokenValid() {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	return c.refreshToken(ctx)
}

// tokenValid вызывать под локом
func (c *Client) tokenValid() bool {
	return c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshSkew))
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// double-check после захвата лока
	if c.tokenValid() {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("scope", c.scope)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Basic "+c.authKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("RqUID", uuid.New().String()) // Сбер требует уникальный id запроса

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", llm.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("gigachat auth failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return "", llm.ErrAuthFailed
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}

	c.accessToken = authResp.AccessToken
	c.tokenExpiry = time.UnixMilli(authResp.ExpiresAt)

	c.logger.Debug("gigachat token refreshed",
		zap.Time("expires", c.tokenExpiry),
	)

	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
}

var _ llm.Client = (*Client)(nil)
