package commerce

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gohaste/storefront/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Token: "test-token", Currency: "GBP"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client, server
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListProductsEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":"p1","title":"Mug","price":12.50,"inventory":3}]}`))
	}))

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].Price != 1250 {
		t.Errorf("expected price converted to minor units 1250, got %d", products[0].Price)
	}
	if products[0].Currency != "GBP" {
		t.Errorf("expected default currency GBP, got %s", products[0].Currency)
	}
	if !products[0].InStock {
		t.Error("expected product in stock")
	}
}

func TestListProductsBareArray(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"p1","title":"Mug","price":5}]`))
	}))

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(products) != 1 || products[0].ID != "p1" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

func TestListProductsDataEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"products":[{"id":"p1","title":"Mug","price":5}]}}`))
	}))

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
}

func TestListProductsMalformedShapeDefaultsEmpty(t *testing.T) {
	var logged []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	client.logger = func(_ context.Context, event string, _ map[string]any) {
		logged = append(logged, event)
	}

	products, err := client.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("expected defensive default, got error: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected empty product list, got %d", len(products))
	}
	if len(logged) != 1 || logged[0] != "commerce.decode_degraded" {
		t.Fatalf("expected degrade event, got %v", logged)
	}
}

func TestGetProductNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	if _, err := client.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProductBareObject(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","title":"Mug","price":12.5,"currency":"USD"}`))
	}))

	product, err := client.GetProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProduct returned error: %v", err)
	}
	if product == nil || product.ID != "p1" {
		t.Fatalf("unexpected product: %+v", product)
	}
	if product.Currency != "USD" {
		t.Errorf("expected currency from payload, got %s", product.Currency)
	}
}

func TestListOrdersMapsStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"orders":[{"id":"o1","status":"Completed","total":208.97,"items":[{"id":"i1","quantity":2,"price":49.99}]}]}`))
	}))

	orders, err := client.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("ListOrders returned error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].Status != domain.OrderStatusCompleted {
		t.Errorf("expected status lower-cased to completed, got %s", orders[0].Status)
	}
	if orders[0].Total != 20897 {
		t.Errorf("expected total 20897 minor units, got %d", orders[0].Total)
	}
	if orders[0].Items[0].UnitPrice != 4999 {
		t.Errorf("expected item price 4999 minor units, got %d", orders[0].Items[0].UnitPrice)
	}
}

func TestSubmitOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "key-1" {
			t.Errorf("expected idempotency key forwarded, got %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"id":"o1","status":"pending","total":208.97}}`))
	}))

	order, err := client.SubmitOrder(context.Background(), OrderSubmission{
		Email:          "shopper@example.com",
		Currency:       "GBP",
		Items:          []domain.LineItem{{ProductID: "p1", Quantity: 2, UnitPrice: 4999}},
		TotalMinor:     20897,
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("SubmitOrder returned error: %v", err)
	}
	if order.ID != "o1" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestSubmitOrderRejectsEmptyCart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty submission")
	}))

	if _, err := client.SubmitOrder(context.Background(), OrderSubmission{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitOrderServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.SubmitOrder(context.Background(), OrderSubmission{
		Items: []domain.LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 100}},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCartLifecycle(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/carts":
			_, _ = w.Write([]byte(`{"cart":{"id":"cart_1","currency":"gbp"}}`))
		case r.URL.Path == "/carts/cart_1/complete":
			_, _ = w.Write([]byte(`{"order":{"id":"o1","status":"pending"}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))

	ctx := context.Background()

	cart, err := client.CreateCart(ctx)
	if err != nil {
		t.Fatalf("CreateCart returned error: %v", err)
	}
	if cart.ID != "cart_1" || cart.Currency != "GBP" {
		t.Fatalf("unexpected cart: %+v", cart)
	}

	if err := client.AddLineItem(ctx, cart.ID, domain.LineItem{ProductID: "p1", Quantity: 2}); err != nil {
		t.Fatalf("AddLineItem returned error: %v", err)
	}
	if err := client.UpdateLineItem(ctx, cart.ID, "item_1", 3); err != nil {
		t.Fatalf("UpdateLineItem returned error: %v", err)
	}
	if err := client.RemoveLineItem(ctx, cart.ID, "item_1"); err != nil {
		t.Fatalf("RemoveLineItem returned error: %v", err)
	}

	order, err := client.CompleteCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("CompleteCart returned error: %v", err)
	}
	if order.ID != "o1" {
		t.Fatalf("unexpected order: %+v", order)
	}

	want := []string{
		"POST /carts",
		"POST /carts/cart_1/line-items",
		"POST /carts/cart_1/line-items/item_1",
		"DELETE /carts/cart_1/line-items/item_1",
		"POST /carts/cart_1/complete",
	}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), calls)
	}
	for i, call := range want {
		if calls[i] != call {
			t.Errorf("call %d: expected %s, got %s", i, call, calls[i])
		}
	}
}

func TestNoRetryOnFailure(t *testing.T) {
	var attempts int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.ListProducts(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", attempts)
	}
}
