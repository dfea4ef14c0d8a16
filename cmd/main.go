package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/api"
	"github.com/akylbek/payment-system/marketplace-payments/internal/auth"
	"github.com/akylbek/payment-system/marketplace-payments/internal/cache"
	"github.com/akylbek/payment-system/marketplace-payments/internal/config"
	"github.com/akylbek/payment-system/marketplace-payments/internal/events"
	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers/cardlink"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers/hostedform"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers/qrpay"
	"github.com/akylbek/payment-system/marketplace-payments/internal/repository"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry(telemetry.DefaultServiceName, cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Marketplace Payments")

	// Connect to PostgreSQL
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.Migrate(db.DB); err != nil {
		telemetry.Logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	orders := repository.NewOrderRepository(db)
	payments := repository.NewPaymentRepository(db)
	products := repository.NewProductRepository(db)

	// Connect to Redis
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to configure Redis", zap.Error(err))
	}
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient)

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	// Connect to Kafka
	kafkaWriter := events.NewKafkaWriter(cfg.Brokers())
	defer kafkaWriter.Close()

	infra := service.Infra{
		Cache:  redisCache,
		Dedup:  redisCache,
		Events: events.NewPublisher(kafkaWriter, nc, telemetry.DefaultServiceName),
		Logger: telemetry.Logger,
	}

	gateways := []interfaces.Gateway{
		cardlink.NewGateway(cardlink.Config{
			SecretKey: cfg.CardLink.SecretKey,
			BaseURL:   cfg.CardLink.BaseURL,
			SiteURL:   cfg.SiteURL,
			Timeout:   cfg.ProviderTimeout,
		}),
		qrpay.NewGateway(qrpay.Config{
			MerchantID: cfg.QRPay.MerchantID,
			APIKey:     cfg.QRPay.APIKey,
		}),
		hostedform.NewGateway(hostedform.Config{
			MerchantID:  cfg.HostedForm.MerchantID,
			MerchantKey: cfg.HostedForm.MerchantKey,
			Passphrase:  cfg.HostedForm.Passphrase,
			Sandbox:     cfg.HostedForm.Sandbox,
			NotifyURL:   cfg.HostedForm.NotifyURL,
			SiteURL:     cfg.SiteURL,
		}),
	}
	verifiers := []interfaces.Verifier{
		cardlink.NewVerifier(cardlink.VerifierConfig{
			WebhookSecret: cfg.CardLink.WebhookSecret,
			Tolerance:     cfg.CardLink.WebhookTolerance,
		}),
		qrpay.NewVerifier(cfg.QRPay.MerchantID, orders),
		hostedform.NewVerifier(hostedform.VerifierConfig{
			MerchantID: cfg.HostedForm.MerchantID,
			Passphrase: cfg.HostedForm.Passphrase,
		}, orders),
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(api.Services{
		Authenticator: auth.NewPlatformAuthenticator(cfg.AuthURL, cfg.AuthAPIKey, 0),
		Orders:        service.NewOrderService(orders, products, infra),
		Initiator: service.NewInitiator(gateways, orders, payments, infra, service.InitiatorConfig{
			StrictRecord: cfg.StrictRecord,
		}),
		Reconciler: service.NewReconciler(verifiers, orders, payments, infra),
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		telemetry.Logger.Info("Marketplace Payments starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
