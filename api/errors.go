package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce/ledger"
	"commerce/models"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// statusOf 將領域錯誤對應到 HTTP 狀態碼
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthenticated), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, models.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError 回應錯誤，只有非預期的錯誤會記錄並隱藏細節
func (impl *ServerImpl) abortWithError(c *gin.Context, op string, err error) {
	status := statusOf(err)
	message, ok := ledger.Message(err)
	if !ok {
		message = http.StatusText(status)
	}
	if status == http.StatusInternalServerError {
		impl.logger.Error("request failed",
			slog.String("op", op),
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: message})
}
