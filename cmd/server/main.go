package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/textgen/internal/api"
	"github.com/kitbuilder587/textgen/internal/cache"
	"github.com/kitbuilder587/textgen/internal/cache/memory"
	"github.com/kitbuilder587/textgen/internal/config"
	"github.com/kitbuilder587/textgen/internal/llm"
	"github.com/kitbuilder587/textgen/internal/llm/gigachat"
	llmMock "github.com/kitbuilder587/textgen/internal/llm/mock"
	"github.com/kitbuilder587/textgen/internal/llm/openai"
	"github.com/kitbuilder587/textgen/internal/llm/openrouter"
	"github.com/kitbuilder587/textgen/internal/metrics"
	"github.com/kitbuilder587/textgen/internal/service"
	"github.com/kitbuilder587/textgen/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "textgen: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := newLLMClient(cfg.LLM, logger)
	m := metrics.New()

	var completionCache cache.Cache
	if cfg.Cache.TTL > 0 {
		mc := memory.NewWithContext(ctx, memory.DefaultCleanupInterval)
		defer mc.Stop()
		completionCache = mc
	}

	generator := service.NewGenerator(service.GeneratorDeps{
		LLM:     client,
		Cache:   completionCache,
		Logger:  logger.Named("generator"),
		Metrics: m,
		Config: service.GeneratorConfig{
			Timeout:      cfg.LLM.Timeout,
			CacheTTL:     cfg.Cache.TTL,
			SystemPrompt: cfg.LLM.SystemPrompt,
		},
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewRouter(api.RouterConfig{
			Generator: generator,
			Logger:    logger.Named("http"),
			Metrics:   m,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		// ответ провайдера может идти до GATEWAY_TIMEOUT_SEC
		WriteTimeout: cfg.LLM.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting textgen",
		zap.String("addr", cfg.Server.Addr),
		zap.String("provider", client.Name()),
		zap.Duration("gateway_timeout", cfg.LLM.Timeout),
		zap.Bool("cache_enabled", completionCache != nil),
		zap.Bool("telegram_enabled", cfg.Telegram.Token != ""),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Telegram.Token != "" {
		bot, err := telegram.New(telegram.BotConfig{
			Token: cfg.Telegram.Token,
			Debug: cfg.Log.Level == "debug",
		}, generator, logger.Named("telegram"), m)
		if err != nil {
			// бот необязателен, HTTP продолжает работать
			logger.Error("telegram bot disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				return bot.Run(gctx)
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}

func newLLMClient(cfg config.LLMConfig, logger *zap.Logger) llm.Client {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:       cfg.OpenAI.APIKey,
			Model:        cfg.OpenAI.Model,
			BaseURL:      cfg.OpenAI.BaseURL,
			SystemPrompt: cfg.SystemPrompt,
			Timeout:      cfg.Timeout,
		}, logger.Named("openai"))
	case config.ProviderOpenRouter:
		return openrouter.New(openrouter.Config{
			APIKey:       cfg.OpenRouter.APIKey,
			Model:        cfg.OpenRouter.Model,
			BaseURL:      cfg.OpenRouter.BaseURL,
			SystemPrompt: cfg.SystemPrompt,
			Timeout:      cfg.Timeout,
		}, logger.Named("openrouter"))
	case config.ProviderGigaChat:
		return gigachat.New(gigachat.Config{
			AuthKey:      cfg.GigaChat.AuthKey,
			ClientID:     cfg.GigaChat.ClientID,
			ClientSecret: cfg.GigaChat.ClientSecret,
			Scope:        cfg.GigaChat.Scope,
			AuthURL:      cfg.GigaChat.AuthURL,
			BaseURL:      cfg.GigaChat.BaseURL,
			Model:        cfg.GigaChat.Model,
			InsecureTLS:  cfg.GigaChat.InsecureTLS,
			SystemPrompt: cfg.SystemPrompt,
			Timeout:      cfg.Timeout,
		}, logger.Named("gigachat"))
	default:
		logger.Warn("using mock LLM provider")
		return llmMock.New().WithResponse("This is a mock completion.")
	}
}
