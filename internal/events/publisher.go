package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SubjectPublisher is the part of *nats.Conn the publisher uses.
type SubjectPublisher interface {
	Publish(subject string, data []byte) error
}

type Publisher struct {
	writer   MessageWriter
	nc       SubjectPublisher
	producer string
}

func NewPublisher(writer MessageWriter, nc SubjectPublisher, producer string) *Publisher {
	return &Publisher{writer: writer, nc: nc, producer: producer}
}

// NewKafkaWriter builds the writer for the state-change topic. Messages are keyed by
// order id so one order's events stay on one partition. Writes are synchronous and a
// partial batch is flushed after writerBatchTimeout.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicPaymentStateChanged,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: writerBatchTimeout,
	}
}

const writerBatchTimeout = 10 * time.Millisecond

func (p *Publisher) PublishPaymentEvent(ctx context.Context, evt models.PaymentEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType(evt.RecordStatus),
		EventVersion:  envelopeVersion,
		OccurredAt:    evt.OccurredAt,
		Producer:      p.producer,
		TraceID:       telemetry.TraceID(ctx),
		CorrelationID: evt.OrderID,
		Payload:       payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	})
}

// NotifySellers publishes one message per seller store in the order.
func (p *Publisher) NotifySellers(_ context.Context, order *models.Order, items []models.OrderItem) error {
	for _, msg := range SplitBySeller(order, items) {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal seller notification: %w", err)
		}
		if err := p.nc.Publish(fmt.Sprintf(SubjectSellerOrderPaid, msg.SellerStoreID), data); err != nil {
			return fmt.Errorf("notify seller %s: %w", msg.SellerStoreID, err)
		}
	}
	return nil
}

// SplitBySeller groups an order's lines by seller store, in first-seen order.
func SplitBySeller(order *models.Order, items []models.OrderItem) []SellerOrderPaid {
	var (
		out        []SellerOrderPaid
		index      = map[string]int{}
		subtotals  []decimal.Decimal
		commission []decimal.Decimal
	)
	for _, it := range items {
		i, ok := index[it.SellerStoreID]
		if !ok {
			i = len(out)
			index[it.SellerStoreID] = i
			out = append(out, SellerOrderPaid{OrderID: order.ID, SellerStoreID: it.SellerStoreID, Currency: models.Currency})
			subtotals = append(subtotals, decimal.Zero)
			commission = append(commission, decimal.Zero)
		}
		out[i].Items = append(out[i].Items, SellerItem{
			ProductID: it.ProductID,
			Qty:       it.Quantity,
			ItemTotal: it.ItemTotal.StringFixed(2),
		})
		subtotals[i] = subtotals[i].Add(it.ItemTotal)
		commission[i] = commission[i].Add(it.CommissionAmount)
	}
	for i := range out {
		out[i].Subtotal = subtotals[i].StringFixed(2)
		out[i].Commission = commission[i].StringFixed(2)
	}
	return out
}
