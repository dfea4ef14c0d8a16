package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/providers/cardlink"
	"github.com/akylbek/payment-system/marketplace-payments/internal/service"
)

const (
	buyerID   = "buyer-1"
	orderID   = "ord-1"
	webSecret = "whsec_router"
)

type memStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	records  map[string]*models.PaymentRecord
	products map[string]models.Product
}

func newMemStore() *memStore {
	return &memStore{
		orders: map[string]*models.Order{
			orderID: {ID: orderID, BuyerID: buyerID, TotalAmount: decimal.RequireFromString("299.99"), Status: models.OrderPending, PaymentStatus: models.PaymentUnpaid},
		},
		records:  map[string]*models.PaymentRecord{},
		products: map[string]models.Product{},
	}
}

func (s *memStore) order(id string) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

type orderRepo struct{ *memStore }

func (r orderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r orderRepo) Items(context.Context, string) ([]models.OrderItem, error) { return nil, nil }

func (r orderRepo) CreateWithItems(_ context.Context, o *models.Order, _ []models.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r orderRepo) AwaitPayment(_ context.Context, id string, method models.PaymentMethod) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !models.TransitionAwaitPayment.Apply(o) {
		return 0, nil
	}
	o.PaymentMethod = method
	return 1, nil
}

func (r orderRepo) Transition(_ context.Context, id string, t models.OrderTransition) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !t.Apply(o) {
		return 0, nil
	}
	return 1, nil
}

type paymentRepo struct{ *memStore }

func (r paymentRepo) GetByOrderID(_ context.Context, id string) (*models.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, models.ErrPaymentRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r paymentRepo) Upsert(_ context.Context, rec *models.PaymentRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.records[rec.OrderID]; ok && cur.Status == models.RecordPaid {
		return 0, nil
	}
	cp := *rec
	r.records[rec.OrderID] = &cp
	return 1, nil
}

func (r paymentRepo) InsertIfAbsent(_ context.Context, rec *models.PaymentRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.OrderID]; ok {
		return false, nil
	}
	cp := *rec
	r.records[rec.OrderID] = &cp
	return true, nil
}

func (r paymentRepo) TransitionStatus(_ context.Context, id, reference string, to models.RecordStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.ProviderReference != reference || !slices.Contains(models.RecordSourceStatuses(to), rec.Status) {
		return 0, nil
	}
	rec.Status = to
	return 1, nil
}

type productRepo struct{ *memStore }

func (r productRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	out := map[string]models.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, token string) (*models.Principal, error) {
	switch token {
	case "buyer-token":
		return &models.Principal{UserID: buyerID}, nil
	case "other-token":
		return &models.Principal{UserID: "buyer-2"}, nil
	}
	return nil, models.ErrUnauthenticated
}

type linkGateway struct{}

func (linkGateway) Method() models.PaymentMethod { return models.MethodCardLink }

func (linkGateway) CreatePayment(_ context.Context, req models.PaymentRequest) (*models.PaymentHandle, error) {
	return &models.PaymentHandle{Reference: "chk_1", RedirectURL: "https://pay.example/chk_1"}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	orders, payments := orderRepo{store}, paymentRepo{store}
	verifier := cardlink.NewVerifier(cardlink.VerifierConfig{WebhookSecret: webSecret})

	r := NewRouter(Services{
		Authenticator: tokenAuth{},
		Orders:        service.NewOrderService(orders, productRepo{store}, service.Infra{}),
		Initiator:     service.NewInitiator([]interfaces.Gateway{linkGateway{}}, orders, payments, service.Infra{}, service.InitiatorConfig{}),
		Reconciler:    service.NewReconciler([]interfaces.Verifier{verifier}, orders, payments, service.Infra{}),
	})
	return r, store
}

func serve(r *gin.Engine, method, path, token string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cardlinkHeaders(body []byte, secret string) http.Header {
	h := http.Header{}
	h.Set(cardlink.HeaderTimestamp, "1700000000")
	h.Set(cardlink.HeaderSignature, hex.EncodeToString(cardlink.Sign(secret, "1700000000", body)))
	return h
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := serve(r, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInitiateThenWebhook(t *testing.T) {
	r, store := newTestRouter(t)

	w := serve(r, http.MethodPost, "/payments/cardlink/initiate", "buyer-token", []byte(`{"orderId":"ord-1","amount":29999}`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "chk_1", resp["paymentId"])
	assert.Equal(t, "https://pay.example/chk_1", resp["redirectUrl"])
	assert.Equal(t, models.PaymentPending, store.order(orderID).PaymentStatus)

	body := []byte(`{"type":"checkout.completed","data":{"id":"chk_1","status":"completed","externalId":"ord-1","amount":29999}}`)
	for i := 0; i < 2; i++ {
		w = serve(r, http.MethodPost, "/webhooks/cardlink", "", body, cardlinkHeaders(body, webSecret))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	o := store.order(orderID)
	assert.Equal(t, models.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, models.OrderProcessing, o.Status)

	w = serve(r, http.MethodGet, "/orders/ord-1/payment", "buyer-token", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view models.OrderStatusView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, models.PaymentPaid, view.PaymentStatus)
}

func TestForgedWebhookIsAcknowledgedButIgnored(t *testing.T) {
	r, store := newTestRouter(t)
	body := []byte(`{"data":{"id":"chk_1","status":"completed","externalId":"ord-1"}}`)

	w := serve(r, http.MethodPost, "/webhooks/cardlink", "", body, cardlinkHeaders(body, "wrong-secret"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentUnpaid, store.order(orderID).PaymentStatus)
}

func TestWebhookUnknownMethod(t *testing.T) {
	r, _ := newTestRouter(t)
	w := serve(r, http.MethodPost, "/webhooks/bitcoin", "", []byte(`{}`), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitiateErrors(t *testing.T) {
	r, store := newTestRouter(t)

	tests := []struct {
		name  string
		path  string
		token string
		body  string
		want  int
	}{
		{"no token", "/payments/cardlink/initiate", "", `{"orderId":"ord-1","amount":29999}`, http.StatusUnauthorized},
		{"unknown method", "/payments/bitcoin/initiate", "buyer-token", `{"orderId":"ord-1","amount":29999}`, http.StatusNotFound},
		{"bad body", "/payments/cardlink/initiate", "buyer-token", `{"orderId":"ord-1"}`, http.StatusBadRequest},
		{"amount mismatch", "/payments/cardlink/initiate", "buyer-token", `{"orderId":"ord-1","amount":100}`, http.StatusBadRequest},
		{"someone else's order", "/payments/cardlink/initiate", "other-token", `{"orderId":"ord-1","amount":29999}`, http.StatusForbidden},
		{"unknown order", "/payments/cardlink/initiate", "buyer-token", `{"orderId":"ord-404","amount":29999}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodPost, tt.path, tt.token, []byte(tt.body), nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, models.PaymentUnpaid, store.order(orderID).PaymentStatus)
}

func TestInitiatePaidOrderConflicts(t *testing.T) {
	r, store := newTestRouter(t)
	store.orders[orderID].PaymentStatus = models.PaymentPaid
	store.orders[orderID].Status = models.OrderProcessing

	w := serve(r, http.MethodPost, "/payments/cardlink/initiate", "buyer-token", []byte(`{"orderId":"ord-1","amount":29999}`), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPaymentStatusForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	w := serve(r, http.MethodGet, "/orders/ord-1/payment", "other-token", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
