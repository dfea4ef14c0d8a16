package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

// Disposition is what became of one provider callback. The provider is acknowledged
// the same way whatever it is.
type Disposition string

const (
	DispositionApplied      Disposition = "applied"
	DispositionDuplicate    Disposition = "duplicate"
	DispositionConflict     Disposition = "ignored_conflict"
	DispositionRejected     Disposition = "rejected"
	DispositionUnrecognized Disposition = "unrecognized"
	DispositionError        Disposition = "error"
)

type ReconcileResult struct {
	Disposition Disposition
	OrderID     string
	Reference   string
	Outcome     models.Outcome
	Err         error
}

// Reconciler turns verified provider callbacks into conditional order and payment
// record transitions. Each transition only fires from its source states, so replays
// and out-of-order deliveries settle to the same result.
type Reconciler struct {
	verifiers map[models.PaymentMethod]interfaces.Verifier
	orders    interfaces.OrderRepository
	payments  interfaces.PaymentRepository
	infra     Infra
}

func NewReconciler(
	verifiers []interfaces.Verifier,
	orders interfaces.OrderRepository,
	payments interfaces.PaymentRepository,
	infra Infra,
) *Reconciler {
	byMethod := make(map[models.PaymentMethod]interfaces.Verifier, len(verifiers))
	for _, v := range verifiers {
		byMethod[v.Method()] = v
	}
	return &Reconciler{
		verifiers: byMethod,
		orders:    orders,
		payments:  payments,
		infra:     infra.withDefaults(),
	}
}

func (r *Reconciler) Supports(method models.PaymentMethod) bool {
	_, ok := r.verifiers[method]
	return ok
}

// Handle verifies and applies one callback. It only returns an error for a method
// with no verifier; everything else is reported through the result.
func (r *Reconciler) Handle(ctx context.Context, method models.PaymentMethod, req interfaces.WebhookRequest) (ReconcileResult, error) {
	verifier, ok := r.verifiers[method]
	if !ok {
		return ReconcileResult{}, fmt.Errorf("%w: %q", models.ErrUnsupportedMethod, method)
	}

	ctx, span := telemetry.Tracer.Start(ctx, "Reconciler.Handle")
	defer span.End()

	log := r.infra.Logger.With(
		zap.String("payment_method", string(method)),
		zap.String("trace_id", telemetry.TraceID(ctx)),
	)
	result := r.handle(ctx, log, verifier, req)

	span.SetAttributes(
		attribute.String("payment.method", string(method)),
		attribute.String("order.id", result.OrderID),
		attribute.String("webhook.disposition", string(result.Disposition)),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
	}
	telemetry.PaymentWebhooks.WithLabelValues(string(method), string(result.Disposition)).Inc()
	return result, nil
}

func (r *Reconciler) handle(ctx context.Context, log *zap.Logger, verifier interfaces.Verifier, req interfaces.WebhookRequest) ReconcileResult {
	outcome, err := verifier.Verify(ctx, req)
	if err != nil {
		logRejection(log, err)
		return ReconcileResult{Disposition: DispositionRejected, Err: err}
	}

	res := ReconcileResult{OrderID: outcome.OrderID, Reference: outcome.Reference, Outcome: outcome.Outcome}
	log = log.With(
		zap.String("order_id", outcome.OrderID),
		zap.String("provider_reference", outcome.Reference),
		zap.String("outcome", outcome.Outcome.String()),
	)

	dedupKey := fmt.Sprintf("%s:%s:%s", outcome.Method, outcome.Reference, outcome.Outcome)
	if outcome.Outcome != models.OutcomeUnrecognized && r.infra.Dedup.Seen(ctx, dedupKey) {
		log.Info("Callback already applied")
		res.Disposition = DispositionDuplicate
		return res
	}

	order, err := r.orders.GetByID(ctx, outcome.OrderID)
	if errors.Is(err, models.ErrOrderNotFound) {
		log.Warn("Callback for unknown order")
		return res.with(DispositionRejected, err)
	}
	if err != nil {
		log.Error("Failed to load order", zap.Error(err))
		return res.with(DispositionError, err)
	}
	if outcome.Amount.Valid && !models.AmountsMatch(order.TotalAmount, outcome.Amount.Decimal) {
		log.Warn("Callback amount does not match order total",
			zap.String("callback_amount", outcome.Amount.Decimal.String()),
			zap.String("order_total", order.TotalAmount.String()),
		)
		return res.with(DispositionRejected, models.ErrAmountMismatch)
	}

	record, err := r.pinnedRecord(ctx, log, order, outcome)
	if err != nil {
		log.Error("Failed to resolve payment record", zap.Error(err))
		return res.with(DispositionError, err)
	}
	if record.ProviderReference != outcome.Reference || record.PaymentMethod != outcome.Method {
		log.Error("Callback reference does not match payment record",
			zap.String("stored_reference", record.ProviderReference),
			zap.String("inbound_reference", outcome.Reference),
			zap.String("stored_method", string(record.PaymentMethod)),
		)
		return res.with(DispositionConflict, models.ErrReferenceConflict)
	}

	status, ok := outcome.Outcome.RecordStatus()
	if !ok {
		log.Info("Unrecognized provider status", zap.String("raw_status", outcome.RawStatus))
		res.Disposition = DispositionUnrecognized
		return res
	}

	transition := models.TransitionPaymentFailed
	if outcome.Outcome == models.OutcomePaid {
		transition = models.TransitionPaid
	}

	recordRows, err := r.payments.TransitionStatus(ctx, order.ID, outcome.Reference, status)
	if err != nil {
		log.Error("Failed to update payment record", zap.Error(err))
		return res.with(DispositionError, err)
	}
	orderRows, err := r.orders.Transition(ctx, order.ID, transition)
	if err != nil {
		log.Error("Failed to update order", zap.String("transition", transition.Name), zap.Error(err))
		return res.with(DispositionError, err)
	}
	telemetry.OrderTransitions.WithLabelValues(transition.Name, fmt.Sprint(orderRows > 0)).Inc()

	if recordRows == 0 && orderRows == 0 {
		log.Info("Callback outcome already settled",
			zap.String("order_status", string(order.Status)),
			zap.String("payment_status", string(order.PaymentStatus)),
		)
		r.markSeen(ctx, log, dedupKey)
		res.Disposition = DispositionDuplicate
		return res
	}

	record.Status = status
	if orderRows > 0 {
		transition.Apply(order)
	}
	r.afterApply(ctx, log, order, record, orderRows > 0 && outcome.Outcome == models.OutcomePaid)
	r.markSeen(ctx, log, dedupKey)

	log.Info("Payment outcome applied",
		zap.String("record_status", string(status)),
		zap.String("order_status", string(order.Status)),
		zap.String("payment_status", string(order.PaymentStatus)),
	)
	res.Disposition = DispositionApplied
	return res
}

// pinnedRecord returns the order's payment record, creating it from the callback
// when the initiator never managed to write one.
func (r *Reconciler) pinnedRecord(ctx context.Context, log *zap.Logger, order *models.Order, outcome *models.ProviderOutcome) (*models.PaymentRecord, error) {
	record, err := r.payments.GetByOrderID(ctx, order.ID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, models.ErrPaymentRecordNotFound) {
		return nil, err
	}

	record = &models.PaymentRecord{
		OrderID:           order.ID,
		PaymentMethod:     outcome.Method,
		ProviderReference: outcome.Reference,
		Status:            models.RecordPending,
		Amount:            order.TotalAmount,
		CreatedBy:         models.CreatedByWebhook,
	}
	created, err := r.payments.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost the race to another writer; theirs is the pinned one.
		return r.payments.GetByOrderID(ctx, order.ID)
	}
	log.Warn("Payment record was missing, recreated from callback")
	return record, nil
}

func (r *Reconciler) afterApply(ctx context.Context, log *zap.Logger, order *models.Order, record *models.PaymentRecord, notifySellers bool) {
	if err := r.infra.Cache.InvalidateOrderStatus(ctx, order.ID); err != nil {
		log.Warn("Failed to invalidate order status cache", zap.Error(err))
	}
	if err := r.infra.Events.PublishPaymentEvent(ctx, paymentEvent(order, record, "webhook")); err != nil {
		log.Warn("Failed to publish payment event", zap.Error(err))
	}
	if !notifySellers {
		return
	}
	items, err := r.orders.Items(ctx, order.ID)
	if err != nil {
		log.Warn("Failed to load order items for seller notification", zap.Error(err))
		return
	}
	if err := r.infra.Events.NotifySellers(ctx, order, items); err != nil {
		log.Warn("Failed to notify sellers", zap.Error(err))
	}
}

func (r *Reconciler) markSeen(ctx context.Context, log *zap.Logger, key string) {
	if err := r.infra.Dedup.MarkSeen(ctx, key); err != nil {
		log.Warn("Failed to record callback dedup marker", zap.Error(err))
	}
}

func (res ReconcileResult) with(d Disposition, err error) ReconcileResult {
	res.Disposition = d
	res.Err = err
	return res
}

func logRejection(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrSignatureInvalid):
		log.Warn("Callback failed authentication", zap.Error(err))
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrAmountMismatch):
		log.Warn("Callback failed cross-check", zap.Error(err))
	case errors.Is(err, models.ErrMalformedCallback):
		log.Info("Malformed callback", zap.Error(err))
	default:
		log.Error("Callback verification error", zap.Error(err))
	}
}
