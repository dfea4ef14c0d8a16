package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

// mockOrderRepository applies the same source-state predicates as the SQL
// conditional updates.
type mockOrderRepository struct {
	mu     sync.Mutex
	store  map[string]*models.Order
	items  map[string][]models.OrderItem
	getErr error
}

func newMockOrderRepository(orders ...*models.Order) *mockOrderRepository {
	m := &mockOrderRepository{store: map[string]*models.Order{}, items: map[string][]models.OrderItem{}}
	for _, o := range orders {
		cp := *o
		m.store[o.ID] = &cp
	}
	return m
}

func (m *mockOrderRepository) GetByID(_ context.Context, orderID string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.store[orderID]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) Items(_ context.Context, orderID string) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[orderID], nil
}

func (m *mockOrderRepository) CreateWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.store[order.ID] = &cp
	m.items[order.ID] = items
	return nil
}

func (m *mockOrderRepository) AwaitPayment(_ context.Context, orderID string, method models.PaymentMethod) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderID]
	if !ok || !models.TransitionAwaitPayment.Apply(o) {
		return 0, nil
	}
	o.PaymentMethod = method
	return 1, nil
}

func (m *mockOrderRepository) Transition(_ context.Context, orderID string, t models.OrderTransition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderID]
	if !ok || !t.Apply(o) {
		return 0, nil
	}
	return 1, nil
}

func (m *mockOrderRepository) order(id string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.store[id]
}

type mockPaymentRepository struct {
	mu        sync.Mutex
	store     map[string]*models.PaymentRecord
	upsertErr error
	upserts   int
}

func newMockPaymentRepository(records ...*models.PaymentRecord) *mockPaymentRepository {
	m := &mockPaymentRepository{store: map[string]*models.PaymentRecord{}}
	for _, r := range records {
		cp := *r
		m.store[r.OrderID] = &cp
	}
	return m
}

func (m *mockPaymentRepository) GetByOrderID(_ context.Context, orderID string) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[orderID]
	if !ok {
		return nil, models.ErrPaymentRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockPaymentRepository) Upsert(_ context.Context, rec *models.PaymentRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	if existing, ok := m.store[rec.OrderID]; ok && existing.Status == models.RecordPaid {
		return 0, nil
	}
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.store[rec.OrderID] = &cp
	return 1, nil
}

func (m *mockPaymentRepository) InsertIfAbsent(_ context.Context, rec *models.PaymentRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[rec.OrderID]; ok {
		return false, nil
	}
	cp := *rec
	m.store[rec.OrderID] = &cp
	return true, nil
}

func (m *mockPaymentRepository) TransitionStatus(_ context.Context, orderID, reference string, to models.RecordStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[orderID]
	if !ok || r.ProviderReference != reference || !slices.Contains(models.RecordSourceStatuses(to), r.Status) {
		return 0, nil
	}
	r.Status = to
	return 1, nil
}

func (m *mockPaymentRepository) record(orderID string) (models.PaymentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[orderID]
	if !ok {
		return models.PaymentRecord{}, false
	}
	return *r, true
}

type mockProductRepository struct {
	products map[string]models.Product
}

func (m *mockProductRepository) GetByIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	out := map[string]models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type mockGateway struct {
	method models.PaymentMethod
	err    error
	calls  []models.PaymentRequest
}

func (g *mockGateway) Method() models.PaymentMethod { return g.method }

func (g *mockGateway) CreatePayment(_ context.Context, req models.PaymentRequest) (*models.PaymentHandle, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	ref := fmt.Sprintf("chk_%d", len(g.calls))
	return &models.PaymentHandle{
		Reference:   ref,
		RedirectURL: "https://pay.example.com/" + ref,
		Metadata:    map[string]any{"checkoutId": ref},
	}, nil
}

type mockCache struct {
	views       map[string]*models.OrderStatusView
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{views: map[string]*models.OrderStatusView{}}
}

func (c *mockCache) GetOrderStatus(_ context.Context, id string) (*models.OrderStatusView, bool) {
	v, ok := c.views[id]
	return v, ok
}

func (c *mockCache) SetOrderStatus(_ context.Context, v *models.OrderStatusView) error {
	c.views[v.OrderID] = v
	return nil
}

func (c *mockCache) InvalidateOrderStatus(_ context.Context, id string) error {
	delete(c.views, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type mockDedup struct {
	seen map[string]bool
}

func (d *mockDedup) Seen(_ context.Context, key string) bool { return d.seen[key] }

func (d *mockDedup) MarkSeen(_ context.Context, key string) error {
	d.seen[key] = true
	return nil
}

type mockEvents struct {
	events   []models.PaymentEvent
	notified []string
}

func (e *mockEvents) PublishPaymentEvent(_ context.Context, evt models.PaymentEvent) error {
	e.events = append(e.events, evt)
	return nil
}

func (e *mockEvents) NotifySellers(_ context.Context, order *models.Order, _ []models.OrderItem) error {
	e.notified = append(e.notified, order.ID)
	return nil
}

var (
	_ interfaces.OrderRepository   = (*mockOrderRepository)(nil)
	_ interfaces.PaymentRepository = (*mockPaymentRepository)(nil)
	_ interfaces.Gateway           = (*mockGateway)(nil)
	_ interfaces.StatusCache       = (*mockCache)(nil)
	_ interfaces.DedupStore        = (*mockDedup)(nil)
	_ interfaces.EventPublisher    = (*mockEvents)(nil)
)
