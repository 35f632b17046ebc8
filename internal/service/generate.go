package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/cache"
	"github.com/kitbuilder587/textgen/internal/domain"
	"github.com/kitbuilder587/textgen/internal/llm"
	"github.com/kitbuilder587/textgen/internal/metrics"
)

const DefaultGatewayTimeout = 30 * time.Second

type TextGenerator interface {
	Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error)
}

type GeneratorConfig struct {
	// Timeout ограничивает один вызов провайдера
	Timeout time.Duration
	// CacheTTL <= 0 выключает кеш
	CacheTTL time.Duration
	// SystemPrompt участвует только в ключе кеша, сам промпт уже зашит в клиенте
	SystemPrompt string
}

type GeneratorDeps struct {
	LLM     llm.Client
	Cache   cache.Cache
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  GeneratorConfig

	// Now подменяется в тестах
	Now func() time.Time
}

type generator struct {
	llm     llm.Client
	cache   cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
	config  GeneratorConfig
	now     func() time.Time
}

func NewGenerator(deps GeneratorDeps) TextGenerator {
	if deps.Config.Timeout <= 0 {
		deps.Config.Timeout = DefaultGatewayTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &generator{
		llm:     deps.LLM,
		cache:   deps.Cache,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		config:  deps.Config,
		now:     deps.Now,
	}
}

// Generate: валидация -> провайдер -> ответ.
// Ошибки только двух типов: *domain.ValidationError или *domain.GatewayError.
func (g *generator) Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	if req == nil {
		req = &domain.GenerateRequest{}
	}

	if err := req.Validate(); err != nil {
		g.logger.Debug("generate request rejected", zap.Error(err))
		g.recordOutcome(string(domain.CategoryValidation))
		return nil, err
	}

	sanitized := *req
	sanitized.Sanitize()

	g.logger.Info("generating completion",
		zap.String("provider", g.llm.Name()),
		zap.Int("prompt_length", len([]rune(sanitized.Prompt))),
	)

	completion, err := g.complete(ctx, sanitized.Prompt)
	if err != nil {
		g.logger.Error("completion failed",
			zap.String("provider", g.llm.Name()),
			zap.Error(err),
		)
		g.recordOutcome(string(domain.CategoryAPIError))
		return nil, &domain.GatewayError{Provider: g.llm.Name(), Cause: err}
	}

	g.recordOutcome("success")

	return domain.NewGenerateResponse(completion.Text, completion.Model, completion.TokensUsed, g.now()), nil
}

func (g *generator) complete(ctx context.Context, prompt string) (*llm.Completion, error) {
	key := g.cacheKey(prompt)
	if cached, ok := g.cachedCompletion(key); ok {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := g.llm.Complete(ctx, prompt)
	if err == nil && (completion == nil || completion.Text == "") {
		err = llm.ErrEmptyResponse
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", g.config.Timeout, err)
	}

	if g.metrics != nil {
		g.metrics.RecordLLMRequest(g.llm.Name(), llmStatus(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	// токены считаем только за реальный вызов, попадание в кеш их не тратит
	if g.metrics != nil {
		g.metrics.RecordTokens(g.llm.Name(), completion.Model, completion.TokensUsed)
	}

	if g.cache != nil && g.config.CacheTTL > 0 {
		g.cache.Set(key, *completion, g.config.CacheTTL)
	}
	return completion, nil
}

func (g *generator) cachedCompletion(key string) (*llm.Completion, bool) {
	if g.cache == nil || g.config.CacheTTL <= 0 {
		return nil, false
	}

	if cached, ok := g.cache.Get(key); ok {
		if c, ok := cached.(llm.Completion); ok {
			if g.metrics != nil {
				g.metrics.RecordCacheHit()
			}
			return &c, true
		}
	}

	if g.metrics != nil {
		g.metrics.RecordCacheMiss()
	}
	return nil, false
}

func (g *generator) cacheKey(prompt string) string {
	// \x00 как разделитель, чтобы "a"+"bc" != "ab"+"c"
	hash := sha256.Sum256([]byte(g.llm.Name() + "\x00" + g.config.SystemPrompt + "\x00" + prompt))
	return fmt.Sprintf("completion:%x", hash[:16])
}

func (g *generator) recordOutcome(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordGeneration(outcome)
	}
}

func llmStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, llm.ErrAuthFailed):
		return "auth_error"
	case errors.Is(err, llm.ErrRateLimit):
		return "rate_limited"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}
