package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/marketplace-payments/internal/auth"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
)

type PaymentHandler struct {
	initiator *service.Initiator
}

func NewPaymentHandler(initiator *service.Initiator) *PaymentHandler {
	return &PaymentHandler{initiator: initiator}
}

type initiateRequest struct {
	OrderID     string         `json:"orderId" binding:"required"`
	Amount      int64          `json:"amount" binding:"required,gt=0"` // cents
	Description string         `json:"description"`
	BuyerEmail  string         `json:"buyerEmail"`
	BuyerName   string         `json:"buyerName"`
	Metadata    map[string]any `json:"metadata"`
}

type initiateResponse struct {
	Success     bool              `json:"success"`
	PaymentID   string            `json:"paymentId"`
	OrderID     string            `json:"orderId"`
	Method      string            `json:"method"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	QRCode      string            `json:"qrCode,omitempty"`
	FormFields  map[string]string `json:"formFields,omitempty"`
}

// Initiate handles POST /payments/:method/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	method := models.PaymentMethod(c.Param("method"))
	if !h.initiator.Supports(method) {
		respondError(c, models.ErrUnsupportedMethod)
		return
	}

	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.initiator.Initiate(c.Request.Context(), auth.PrincipalFrom(c), service.InitiateRequest{
		Method:        method,
		OrderID:       req.OrderID,
		ClaimedAmount: models.FromCents(req.Amount),
		Description:   req.Description,
		BuyerEmail:    req.BuyerEmail,
		BuyerName:     req.BuyerName,
		Metadata:      req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, initiateResponse{
		Success:     true,
		PaymentID:   result.Reference,
		OrderID:     result.OrderID,
		Method:      string(result.Method),
		RedirectURL: result.RedirectURL,
		QRCode:      result.QRPayload,
		FormFields:  result.FormFields,
	})
}
