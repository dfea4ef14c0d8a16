package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/marketplace-payments/internal/auth"
	"github.com/akylbek/payment-system/marketplace-payments/internal/handlers"
	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

type Services struct {
	Authenticator interfaces.Authenticator
	Orders        *service.OrderService
	Initiator     *service.Initiator
	Reconciler    *service.Reconciler
}

func NewRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	// Provider callbacks authenticate themselves.
	webhookHandler := handlers.NewWebhookHandler(s.Reconciler)
	r.POST("/webhooks/:method", webhookHandler.Receive)

	buyer := r.Group("/", auth.RequireUser(s.Authenticator))

	orderHandler := handlers.NewOrderHandler(s.Orders)
	buyer.POST("/orders", orderHandler.CreateOrder)
	buyer.GET("/orders/:id/payment", orderHandler.GetPaymentStatus)

	paymentHandler := handlers.NewPaymentHandler(s.Initiator)
	buyer.POST("/payments/:method/initiate", paymentHandler.Initiate)

	return r
}
