package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/marketplace-payments/internal/auth"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"qty" binding:"required,gt=0"`
	} `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder handles POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	lines := make([]service.OrderLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	order, items, err := h.orders.CreateOrder(c.Request.Context(), auth.PrincipalFrom(c), lines)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   order,
		"items":   items,
	})
}

// GetPaymentStatus handles GET /orders/:id/payment, the checkout polling target.
func (h *OrderHandler) GetPaymentStatus(c *gin.Context) {
	view, err := h.orders.PaymentStatus(c.Request.Context(), auth.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
