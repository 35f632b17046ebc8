package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/textgen/internal/domain"
)

// writeError переводит ошибку в ErrorResponse. Детали причины остаются только в логах.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	path := c.Request.URL.Path
	requestID := c.GetString(requestIDKey)

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		logger.Debug("validation failed",
			zap.String("request_id", requestID),
			zap.Strings("fields", verr.Messages()),
		)
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewValidationErrorResponse(verr, path))
		return
	}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		logger.Error("gateway failure",
			zap.String("request_id", requestID),
			zap.String("provider", gwErr.Provider),
			zap.Error(gwErr.Cause),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewAPIErrorResponse(path))
		return
	}

	logger.Error("unexpected error",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewInternalErrorResponse(path))
}
