package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/domain"
	"github.com/kitbuilder587/textgen/internal/service"
)

type Handler struct {
	generator service.TextGenerator
	logger    *zap.Logger
}

func NewHandler(generator service.TextGenerator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{generator: generator, logger: logger}
}

// Generate обрабатывает POST /generate
func (h *Handler) Generate(c *gin.Context) {
	var req domain.GenerateRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	resp, err := h.generator.Generate(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	verr := domain.NewValidationError(
		domain.NewFieldError("path", fmt.Sprintf("route %s not found", c.Request.URL.Path), nil),
	)
	c.AbortWithStatusJSON(http.StatusNotFound, domain.NewValidationErrorResponse(verr, c.Request.URL.Path))
}

func (h *Handler) MethodNotAllowed(c *gin.Context) {
	verr := domain.NewValidationError(
		domain.NewFieldError("method", fmt.Sprintf("method %s not allowed", c.Request.Method), nil),
	)
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, domain.NewValidationErrorResponse(verr, c.Request.URL.Path))
}

var errTrailingData = errors.New("unexpected data after JSON object")

// decodeJSON в отличие от ShouldBindJSON не пропускает мусор после первого объекта
func decodeJSON(body io.Reader, v any) error {
	if body == nil {
		return io.EOF
	}

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingData
	}
	return nil
}

func bindError(err error) *domain.ValidationError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.NewValidationError(domain.NewFieldError(
			"body", fmt.Sprintf("must be at most %d bytes", tooLarge.Limit), domain.ErrMalformedBody,
		))
	}
	if errors.Is(err, errTrailingData) {
		return domain.NewValidationError(domain.NewFieldError("body", "must contain a single JSON object", domain.ErrMalformedBody))
	}
	return domain.NewValidationError(domain.NewFieldError("body", "must be a valid JSON object", domain.ErrMalformedBody))
}
