package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

type InitiateRequest struct {
	Method        models.PaymentMethod
	OrderID       string
	ClaimedAmount decimal.Decimal
	Description   string
	BuyerEmail    string
	BuyerName     string
	Metadata      map[string]any
}

type InitiateResult struct {
	OrderID     string
	Method      models.PaymentMethod
	Reference   string
	RedirectURL string
	QRPayload   string
	FormFields  map[string]string
}

type InitiatorConfig struct {
	// StrictRecord fails the initiation when the payment record cannot be written,
	// instead of leaving it for the webhook to recreate.
	StrictRecord bool
}

// Initiator validates a buyer's payment attempt against the stored order, mints a
// handle with the chosen provider and pins the provider's reference to the order.
type Initiator struct {
	gateways map[models.PaymentMethod]interfaces.Gateway
	orders   interfaces.OrderRepository
	payments interfaces.PaymentRepository
	infra    Infra
	cfg      InitiatorConfig
}

func NewInitiator(
	gateways []interfaces.Gateway,
	orders interfaces.OrderRepository,
	payments interfaces.PaymentRepository,
	infra Infra,
	cfg InitiatorConfig,
) *Initiator {
	byMethod := make(map[models.PaymentMethod]interfaces.Gateway, len(gateways))
	for _, g := range gateways {
		byMethod[g.Method()] = g
	}
	return &Initiator{
		gateways: byMethod,
		orders:   orders,
		payments: payments,
		infra:    infra.withDefaults(),
		cfg:      cfg,
	}
}

func (s *Initiator) Supports(method models.PaymentMethod) bool {
	_, ok := s.gateways[method]
	return ok
}

func (s *Initiator) Initiate(ctx context.Context, principal *models.Principal, req InitiateRequest) (*InitiateResult, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "Initiator.Initiate")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("payment.method", string(req.Method)),
	)

	result, err := s.initiate(ctx, principal, req)
	outcome := "success"
	if err != nil {
		outcome = initiationResult(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.PaymentInitiations.WithLabelValues(string(req.Method), outcome).Inc()
	return result, err
}

func (s *Initiator) initiate(ctx context.Context, principal *models.Principal, req InitiateRequest) (*InitiateResult, error) {
	log := s.infra.Logger.With(
		zap.String("order_id", req.OrderID),
		zap.String("payment_method", string(req.Method)),
		zap.String("trace_id", telemetry.TraceID(ctx)),
	)

	if principal == nil || principal.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	gateway, ok := s.gateways[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedMethod, req.Method)
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != principal.UserID {
		log.Warn("Payment initiation for another buyer's order", zap.String("caller_id", principal.UserID))
		return nil, models.ErrForbidden
	}
	if !models.AmountsMatch(order.TotalAmount, req.ClaimedAmount) {
		log.Warn("Claimed amount does not match order total",
			zap.String("claimed", req.ClaimedAmount.String()),
			zap.String("total", order.TotalAmount.String()),
		)
		return nil, fmt.Errorf("%w: claimed %s, order total %s", models.ErrAmountMismatch, req.ClaimedAmount, order.TotalAmount)
	}
	if !order.Payable() {
		return nil, fmt.Errorf("%w: status=%s payment_status=%s", models.ErrOrderNotPayable, order.Status, order.PaymentStatus)
	}

	start := time.Now()
	handle, err := gateway.CreatePayment(ctx, models.PaymentRequest{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Description: req.Description,
		BuyerEmail:  req.BuyerEmail,
		BuyerName:   req.BuyerName,
		Metadata:    req.Metadata,
	})
	telemetry.ProviderRequestDuration.WithLabelValues(string(req.Method)).Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("Provider failed to create payment", zap.Error(err))
		var perr *models.ProviderError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &models.ProviderError{Provider: req.Method, Message: err.Error(), Err: err}
	}

	record := &models.PaymentRecord{
		OrderID:           order.ID,
		PaymentMethod:     req.Method,
		ProviderReference: handle.Reference,
		Status:            models.RecordPending,
		Amount:            order.TotalAmount,
		CreatedBy:         models.CreatedByInitiator,
		Metadata:          recordMetadata(req.Metadata, handle.Metadata),
	}
	rows, err := s.payments.Upsert(ctx, record)
	switch {
	case err != nil && s.cfg.StrictRecord:
		log.Error("Failed to persist payment record", zap.String("provider_reference", handle.Reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentRecordWrite, err)
	case err != nil:
		// The webhook recreates the record when it finds none.
		log.Error("Failed to persist payment record, continuing",
			zap.String("provider_reference", handle.Reference),
			zap.Error(err),
		)
	case rows == 0:
		log.Warn("Payment record already settled as paid")
		return nil, fmt.Errorf("%w: payment already settled", models.ErrOrderNotPayable)
	}

	rows, err = s.orders.AwaitPayment(ctx, order.ID, req.Method)
	if err != nil {
		return nil, err
	}
	telemetry.OrderTransitions.WithLabelValues(models.TransitionAwaitPayment.Name, fmt.Sprint(rows > 0)).Inc()
	if rows == 0 {
		log.Warn("Order left the payable states during initiation")
		return nil, fmt.Errorf("%w: order changed concurrently", models.ErrOrderNotPayable)
	}

	if err := s.infra.Cache.InvalidateOrderStatus(ctx, order.ID); err != nil {
		log.Warn("Failed to invalidate order status cache", zap.Error(err))
	}
	models.TransitionAwaitPayment.Apply(order)
	s.publish(ctx, log, order, record, "initiator")

	log.Info("Payment initiated", zap.String("provider_reference", handle.Reference))
	return &InitiateResult{
		OrderID:     order.ID,
		Method:      req.Method,
		Reference:   handle.Reference,
		RedirectURL: handle.RedirectURL,
		QRPayload:   handle.QRPayload,
		FormFields:  handle.FormFields,
	}, nil
}

func (s *Initiator) publish(ctx context.Context, log *zap.Logger, order *models.Order, rec *models.PaymentRecord, source string) {
	err := s.infra.Events.PublishPaymentEvent(ctx, paymentEvent(order, rec, source))
	if err != nil {
		log.Warn("Failed to publish payment event", zap.Error(err))
	}
}

func paymentEvent(order *models.Order, rec *models.PaymentRecord, source string) models.PaymentEvent {
	return models.PaymentEvent{
		OrderID:       order.ID,
		PaymentMethod: rec.PaymentMethod,
		Reference:     rec.ProviderReference,
		RecordStatus:  rec.Status,
		OrderStatus:   order.Status,
		PaymentStatus: order.PaymentStatus,
		Amount:        order.TotalAmount.StringFixed(2),
		Source:        source,
		OccurredAt:    time.Now().UTC(),
	}
}

func recordMetadata(request, provider map[string]any) types.JSONText {
	merged := make(map[string]any, len(request)+len(provider))
	for k, v := range request {
		merged[k] = v
	}
	for k, v := range provider {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return types.JSONText("{}")
	}
	return types.JSONText(raw)
}

func initiationResult(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, models.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, models.ErrOrderNotPayable):
		return "not_payable"
	case errors.Is(err, models.ErrUnsupportedMethod):
		return "unsupported_method"
	case errors.Is(err, models.ErrProvider):
		return "provider_error"
	case errors.Is(err, models.ErrPaymentRecordWrite):
		return "record_write_failed"
	}
	return "error"
}
