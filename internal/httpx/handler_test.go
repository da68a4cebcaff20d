package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamwear/storefront/internal/cart"
	"github.com/teamwear/storefront/internal/catalog"
	"github.com/teamwear/storefront/internal/checkout"
	"github.com/teamwear/storefront/internal/notify"
	"github.com/teamwear/storefront/internal/order"
	"github.com/teamwear/storefront/internal/payment"
	"github.com/teamwear/storefront/internal/payment/hosted"
	"github.com/teamwear/storefront/internal/reconcile"
)

const (
	testSecret   = "whsec_test"
	thankYouURL  = "https://shop.example.com/thank-you"
	catalogURL   = "https://shop.example.com/"
	testSession  = "0b9dcba4-68f8-4d29-8d21-9b26d692d4c4"
	hostedURL    = "https://pay.example.com/c/cs_test_123"
	hostedSessID = "cs_test_123"
)

type fakeCatalog struct {
	products map[int64]*catalog.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

// fakeOrderRepo mirrors the SQLite repository's conditional finalize.
type fakeOrderRepo struct {
	mu          sync.Mutex
	pending     map[string]*order.PendingOrder
	items       map[string][]order.LineItem
	finalizeErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		pending: make(map[string]*order.PendingOrder),
		items:   make(map[string][]order.LineItem),
	}
}

func (f *fakeOrderRepo) CreatePending(_ context.Context, po *order.PendingOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[po.ID] = po
	return nil
}

func (f *fakeOrderRepo) SetPaymentSession(_ context.Context, orderID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	po, ok := f.pending[orderID]
	if !ok {
		return order.ErrNotFound
	}
	po.PaymentSessionID = sessionID
	return nil
}

func (f *fakeOrderRepo) GetPending(_ context.Context, orderID string) (*order.PendingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	po, ok := f.pending[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return po, nil
}

func (f *fakeOrderRepo) Finalize(_ context.Context, orderID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	po, ok := f.pending[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	if po.Paid && len(po.PendingItems) == 0 {
		return nil, order.ErrAlreadyFinalized
	}
	items := po.PendingItems
	po.Paid = true
	po.PendingItems = nil
	f.items[orderID] = append(f.items[orderID], items...)
	return &order.Order{ID: po.ID, CustomerName: po.CustomerName, CustomerEmail: po.CustomerEmail, CreatedAt: po.CreatedAt, Items: items}, nil
}

// fakeProcessor remembers the sessions it issued so the success path can
// resolve them.
type fakeProcessor struct {
	mu        sync.Mutex
	sessions  map[string]*payment.Session
	createErr error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*payment.Session)}
}

func (p *fakeProcessor) CreateSession(_ context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	s := &payment.Session{
		ID:       hostedSessID,
		URL:      hostedURL,
		Metadata: map[string]string{payment.MetadataOrderID: params.OrderID},
	}
	p.sessions[s.ID] = s
	return s, nil
}

func (p *fakeProcessor) RetrieveSession(_ context.Context, id string) (*payment.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, payment.ErrSessionNotFound
	}
	return s, nil
}

type env struct {
	router http.Handler
	repo   *fakeOrderRepo
	proc   *fakeProcessor
}

func newEnv() *env {
	cat := &fakeCatalog{products: map[int64]*catalog.Product{
		1: {
			ID:             1,
			Name:           "Team Shirt",
			AvailableSizes: []string{"AS", "AM", "AL", "2X"},
			Variants: []catalog.Variant{
				{CategoryID: 10, CategoryName: "T-Shirt", ColorName: "Red", Price: decimal.RequireFromString("25.00")},
			},
		},
	}}

	cartSvc := cart.NewService(cart.NewMemoryStore(), cat)
	repo := newFakeOrderRepo()
	proc := newFakeProcessor()

	coordinator := checkout.NewCoordinator(cartSvc, cat, repo, proc, nil,
		"https://shop.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		"https://shop.example.com/checkout/cancel")
	reconciler := reconcile.NewService(repo, proc, notify.LogGateway{}, nil)

	handler := NewHandler(cartSvc, coordinator, reconciler, testSecret, thankYouURL, catalogURL)
	return &env{router: NewRouter(handler), repo: repo, proc: proc}
}

func (e *env) do(t *testing.T, method, target string, body []byte, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: testSession})
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) addShirt(t *testing.T, size string, qty int, customization string) {
	t.Helper()
	body, _ := json.Marshal(addItemRequest{ProductID: 1, SizeCode: size, Quantity: qty, Customization: customization})
	rec := e.do(t, http.MethodPost, "/cart/items", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCartEndpoints_RoundTrip(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "2X", 1, "SMITH")

	rec := e.do(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "2X", resp.Items[0].SizeCode)
	// Display price derives surcharges: 25 + 2 + 2.
	assert.Equal(t, "29.00", resp.Items[0].DisplayPrice)
	assert.Equal(t, "29.00", resp.Total)

	rec = e.do(t, http.MethodDelete, "/cart/items/1/2X", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/cart", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	e := newEnv()
	body, _ := json.Marshal(addItemRequest{ProductID: 99, SizeCode: "AL", Quantity: 1})

	rec := e.do(t, http.MethodPost, "/cart/items", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveItem_Missing(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodDelete, "/cart/items/1/AL", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_EmptyCartRedirectsToCatalog(t *testing.T) {
	e := newEnv()
	body, _ := json.Marshal(checkoutRequest{CustomerName: "John", CustomerEmail: "john@test.com"})

	rec := e.do(t, http.MethodPost, "/checkout", body)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, catalogURL, rec.Header().Get("Location"))
}

func TestCheckout_RedirectsToHostedSession(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "AL", 2, "")
	body, _ := json.Marshal(checkoutRequest{CustomerName: "John Doe", CustomerEmail: "john@test.com"})

	rec := e.do(t, http.MethodPost, "/checkout", body)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, hostedURL, rec.Header().Get("Location"))

	// Cart is gone afterwards.
	rec = e.do(t, http.MethodGet, "/cart", nil)
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestCheckout_FormEncoded(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "AL", 1, "")

	form := "customer_name=Jane&customer_email=jane%40test.com"
	rec := e.do(t, http.MethodPost, "/checkout", []byte(form), func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, hostedURL, rec.Header().Get("Location"))
}

// Browsers append parameters to the media type: urlencoded posts often carry
// a charset, multipart posts always carry a boundary.
func TestCheckout_FormEncodedWithCharset(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "AL", 1, "")

	form := "customer_name=Jane&customer_email=jane%40test.com"
	rec := e.do(t, http.MethodPost, "/checkout", []byte(form), func(r *http.Request) {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, hostedURL, rec.Header().Get("Location"))
}

func TestCheckout_MultipartForm(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "AL", 1, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("customer_name", "Jane Doe"))
	require.NoError(t, mw.WriteField("customer_email", "jane@test.com"))
	require.NoError(t, mw.Close())

	rec := e.do(t, http.MethodPost, "/checkout", buf.Bytes(), func(r *http.Request) {
		r.Header.Set("Content-Type", mw.FormDataContentType())
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, hostedURL, rec.Header().Get("Location"))
}

func TestCheckout_FailureHidesDetail(t *testing.T) {
	e := newEnv()
	e.addShirt(t, "AL", 1, "")
	e.proc.createErr = errors.New("payment: dial tcp 10.0.0.5: connection refused")

	body, _ := json.Marshal(checkoutRequest{CustomerName: "John", CustomerEmail: "john@test.com"})
	rec := e.do(t, http.MethodPost, "/checkout", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

// checkoutOrder runs a full checkout and returns the created order ID.
func (e *env) checkoutOrder(t *testing.T) string {
	t.Helper()
	e.addShirt(t, "AL", 2, "")
	body, _ := json.Marshal(checkoutRequest{CustomerName: "John Doe", CustomerEmail: "john@test.com"})
	rec := e.do(t, http.MethodPost, "/checkout", body)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	e.repo.mu.Lock()
	defer e.repo.mu.Unlock()
	require.Len(t, e.repo.pending, 1)
	for id := range e.repo.pending {
		return id
	}
	return ""
}

func TestPaymentSuccess_FinalizesAndRedirects(t *testing.T) {
	e := newEnv()
	orderID := e.checkoutOrder(t)

	rec := e.do(t, http.MethodGet, "/checkout/success?session_id="+hostedSessID, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, thankYouURL, rec.Header().Get("Location"))
	assert.Len(t, e.repo.items[orderID], 1)

	// The webhook already won? Same redirect either way.
	rec = e.do(t, http.MethodGet, "/checkout/success?session_id="+hostedSessID, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, thankYouURL, rec.Header().Get("Location"))
}

func TestPaymentSuccess_MissingSessionID(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodGet, "/checkout/success", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentSuccess_FailureHidesDetail(t *testing.T) {
	e := newEnv()
	e.checkoutOrder(t)
	e.repo.finalizeErr = errors.New("sqlite: disk I/O error")

	rec := e.do(t, http.MethodGet, "/checkout/success?session_id="+hostedSessID, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk I/O")
}

func TestPaymentSuccess_UnknownSession(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodGet, "/checkout/success?session_id=cs_bogus", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentCancel_RedirectsToCatalog(t *testing.T) {
	e := newEnv()

	rec := e.do(t, http.MethodGet, "/checkout/cancel", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, catalogURL, rec.Header().Get("Location"))
}

func signedEvent(t *testing.T, orderID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"type":"checkout.session.completed","data":{"object":{"id":"%s","metadata":{"order_id":"%s"}}}}`,
		hostedSessID, orderID,
	))
	return payload, hosted.SignPayload(payload, testSecret, time.Now())
}

func (e *env) postWebhook(t *testing.T, payload []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/webhooks/payment", payload, func(r *http.Request) {
		r.Header.Set(signatureHeader, sig)
	})
}

func TestWebhook_FinalizesOrder(t *testing.T) {
	e := newEnv()
	orderID := e.checkoutOrder(t)
	payload, sig := signedEvent(t, orderID)

	rec := e.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, e.repo.items[orderID], 1)

	// Redelivery of the same event is acknowledged, not re-applied.
	rec = e.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, e.repo.items[orderID], 1)
}

func TestWebhook_BadSignature(t *testing.T) {
	e := newEnv()
	orderID := e.checkoutOrder(t)
	payload, _ := signedEvent(t, orderID)

	rec := e.postWebhook(t, payload, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.repo.items[orderID], "unverified events must not finalize anything")
}

func TestWebhook_UnknownOrder(t *testing.T) {
	e := newEnv()
	payload, sig := signedEvent(t, "no-such-order")

	rec := e.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_IgnoresOtherEventTypes(t *testing.T) {
	e := newEnv()
	payload := []byte(`{"type":"payment_intent.created","data":{"object":{"id":"pi_1","metadata":{}}}}`)
	sig := hosted.SignPayload(payload, testSecret, time.Now())

	rec := e.postWebhook(t, payload, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionCookie_IssuedWhenAbsent(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	assert.True(t, found, "a fresh session cookie must be issued")
}

// A client must not be able to pick its own cart key.
func TestSessionCookie_ReplacedWhenMalformed(t *testing.T) {
	e := newEnv()

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "attacker-chosen-key"})
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var reissued string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			reissued = c.Value
		}
	}
	require.NotEmpty(t, reissued, "a replacement cookie must be issued")
	assert.NotEqual(t, "attacker-chosen-key", reissued)
	_, err := uuid.Parse(reissued)
	assert.NoError(t, err)
}
