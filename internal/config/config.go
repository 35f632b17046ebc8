package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidProvider = errors.New("invalid LLM_PROVIDER")
	ErrMissingAPIKey   = errors.New("API key for the selected provider is required")
	ErrInvalidTimeout  = errors.New("GATEWAY_TIMEOUT_SEC must be positive")
	ErrInvalidCacheTTL = errors.New("CACHE_TTL_SEC must not be negative")
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGigaChat   = "gigachat"
	ProviderMock       = "mock"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Cache    CacheConfig
	Telegram TelegramConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LLMConfig struct {
	Provider     string
	SystemPrompt string
	// Timeout на один вызов провайдера
	Timeout    time.Duration
	OpenAI     OpenAIConfig
	OpenRouter OpenRouterConfig
	GigaChat   GigaChatConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GigaChatConfig struct {
	AuthKey      string
	ClientID     string
	ClientSecret string
	Scope        string
	AuthURL      string
	BaseURL      string
	Model        string
	InsecureTLS  bool
}

type CacheConfig struct {
	TTL time.Duration
}

// TelegramConfig: пустой Token выключает бота
type TelegramConfig struct {
	Token string
}

type LogConfig struct {
	Level string
	// Format: json или console, пустое значение выбирается по уровню
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnvOrDefault("HTTP_ADDR", ":8080"),
			ShutdownTimeout: time.Duration(getEnvIntOrDefault("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderMock)),
			SystemPrompt: os.Getenv("SYSTEM_PROMPT"),
			Timeout:      time.Duration(getEnvIntOrDefault("GATEWAY_TIMEOUT_SEC", 30)) * time.Second,
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey:  os.Getenv("OPENROUTER_API_KEY"),
				Model:   getEnvOrDefault("OPENROUTER_MODEL", "deepseek/deepseek-chat"),
				BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			},
			GigaChat: GigaChatConfig{
				AuthKey:      os.Getenv("GIGACHAT_AUTH_KEY"),
				ClientID:     os.Getenv("GIGACHAT_CLIENT_ID"),
				ClientSecret: os.Getenv("GIGACHAT_CLIENT_SECRET"),
				Scope:        getEnvOrDefault("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
				AuthURL:      getEnvOrDefault("GIGACHAT_AUTH_URL", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"),
				BaseURL:      getEnvOrDefault("GIGACHAT_BASE_URL", "https://gigachat.devices.sberbank.ru/api/v1"),
				Model:        getEnvOrDefault("GIGACHAT_MODEL", "GigaChat"),
				InsecureTLS:  getEnvBoolOrDefault("GIGACHAT_INSECURE_TLS", false),
			},
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 0)) * time.Second,
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: strings.ToLower(os.Getenv("LOG_FORMAT")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingAPIKey)
		}
	case ProviderOpenRouter:
		if c.LLM.OpenRouter.APIKey == "" {
			return fmt.Errorf("%w: OPENROUTER_API_KEY", ErrMissingAPIKey)
		}
	case ProviderGigaChat:
		gc := c.LLM.GigaChat
		if gc.AuthKey == "" && (gc.ClientID == "" || gc.ClientSecret == "") {
			return fmt.Errorf("%w: GIGACHAT_AUTH_KEY or GIGACHAT_CLIENT_ID/GIGACHAT_CLIENT_SECRET", ErrMissingAPIKey)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLM.Provider)
	}

	if c.LLM.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Cache.TTL < 0 {
		return ErrInvalidCacheTTL
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
