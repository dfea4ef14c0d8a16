package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

// statusFor maps a service error to the HTTP status the caller sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrUnsupportedMethod):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAmountMismatch), errors.Is(err, models.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrOrderNotPayable):
		return http.StatusConflict
	case errors.Is(err, models.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		telemetry.Logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
