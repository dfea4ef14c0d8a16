package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	reconciler *service.Reconciler
}

func NewWebhookHandler(reconciler *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// Receive handles POST /webhooks/:method. Once the body has been read the provider
// always gets 200, whatever became of the callback, so it stops redelivering.
func (h *WebhookHandler) Receive(c *gin.Context) {
	method := models.PaymentMethod(c.Param("method"))
	if !h.reconciler.Supports(method) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": models.ErrUnsupportedMethod.Error()})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		telemetry.Logger.Warn("Unreadable webhook body", zap.String("payment_method", string(method)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	result, err := h.reconciler.Handle(c.Request.Context(), method, interfaces.WebhookRequest{
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		telemetry.Logger.Error("Webhook dispatch failed", zap.Error(err))
	}

	telemetry.Logger.Info("Webhook processed",
		zap.String("payment_method", string(method)),
		zap.String("order_id", result.OrderID),
		zap.String("disposition", string(result.Disposition)),
	)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
