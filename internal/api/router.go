package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/metrics"
	"github.com/kitbuilder587/textgen/internal/service"
)

type RouterConfig struct {
	Generator service.TextGenerator
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	// MetricsHandler по умолчанию promhttp на глобальном registry
	MetricsHandler http.Handler
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = metrics.Handler()
	}

	h := NewHandler(cfg.Generator, cfg.Logger)

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(RecoveryMiddleware(cfg.Logger))

	r.POST("/generate", BodyLimitMiddleware(cfg.MaxBodyBytes), h.Generate)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))

	r.NoRoute(h.NotFound)
	r.NoMethod(h.MethodNotAllowed)

	return r
}
