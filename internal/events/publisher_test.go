package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

type recordingNATS struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (n *recordingNATS) Publish(subject string, data []byte) error {
	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	n.payloads = append(n.payloads, data)
	return nil
}

func TestPublishPaymentEventWrapsEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, &recordingNATS{}, "marketplace-payments")

	evt := models.PaymentEvent{
		OrderID:       "order-1",
		PaymentMethod: models.MethodCardLink,
		Reference:     "chk_1",
		RecordStatus:  models.RecordPaid,
		OrderStatus:   models.OrderProcessing,
		PaymentStatus: models.PaymentPaid,
		Amount:        "299.99",
		Source:        "webhook",
		OccurredAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishPaymentEvent(context.Background(), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("order-1"), msg.Key)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventPaymentSucceeded, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "order-1", env.CorrelationID)
	assert.Equal(t, "marketplace-payments", env.Producer)
	assert.NotEmpty(t, env.EventID)

	var payload models.PaymentEvent
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, evt, payload)
}

func TestNotifySellersOneMessagePerStore(t *testing.T) {
	nc := &recordingNATS{}
	p := NewPublisher(&recordingWriter{}, nc, "test")

	order := &models.Order{ID: "order-2"}
	items := []models.OrderItem{
		{ProductID: "p1", SellerStoreID: "store-a", Quantity: 2, ItemTotal: decimal.RequireFromString("100.00"), CommissionAmount: decimal.RequireFromString("8.00")},
		{ProductID: "p2", SellerStoreID: "store-b", Quantity: 1, ItemTotal: decimal.RequireFromString("50.00"), CommissionAmount: decimal.RequireFromString("4.00")},
		{ProductID: "p3", SellerStoreID: "store-a", Quantity: 1, ItemTotal: decimal.RequireFromString("25.50"), CommissionAmount: decimal.RequireFromString("2.04")},
	}
	require.NoError(t, p.NotifySellers(context.Background(), order, items))

	assert.Equal(t, []string{
		"marketplace.seller.store-a.order_paid",
		"marketplace.seller.store-b.order_paid",
	}, nc.subjects)

	var first SellerOrderPaid
	require.NoError(t, json.Unmarshal(nc.payloads[0], &first))
	assert.Equal(t, "125.50", first.Subtotal)
	assert.Equal(t, "10.04", first.Commission)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, models.Currency, first.Currency)
}

func TestNotifySellersSurfacesPublishError(t *testing.T) {
	p := NewPublisher(&recordingWriter{}, &recordingNATS{err: errors.New("nats: connection closed")}, "test")
	err := p.NotifySellers(context.Background(), &models.Order{ID: "o"}, []models.OrderItem{{SellerStoreID: "s"}})
	assert.Error(t, err)
}

func TestNewKafkaWriterFlushesPromptly(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"})
	defer w.Close()

	assert.Equal(t, TopicPaymentStateChanged, w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.False(t, w.Async, "broker errors must reach the caller")
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.BatchTimeout)
}
