package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu         sync.Mutex
	initCalls  int
	fetchCalls map[ProductType]int
	products   map[ProductType][]Product
	fetchErr   map[ProductType]error
	requests   []PurchaseRequest
	finishes   map[string]int
	consumable map[string]bool
	finishErr  error

	updates chan RawPurchase
	errs    chan error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fetchCalls: map[ProductType]int{},
		products: map[ProductType][]Product{
			ProductTypeConsumable:   {{ID: "tok.50", Title: "50 tokens"}},
			ProductTypeSubscription: {{ID: "sub.monthly", Title: "Premium"}},
		},
		fetchErr:   map[ProductType]error{},
		finishes:   map[string]int{},
		consumable: map[string]bool{},
		updates:    make(chan RawPurchase, 4),
		errs:       make(chan error, 4),
	}
}

func (f *fakeStore) InitConnection(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return nil
}

func (f *fakeStore) EndConnection(ctx context.Context) error { return nil }

func (f *fakeStore) FetchProducts(ctx context.Context, skus []string, typ ProductType) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls[typ]++
	if err := f.fetchErr[typ]; err != nil {
		return nil, err
	}
	return f.products[typ], nil
}

func (f *fakeStore) RequestPurchase(ctx context.Context, req PurchaseRequest, typ ProductType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeStore) FinishTransaction(ctx context.Context, p RawPurchase, isConsumable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes[p.TransactionID]++
	f.consumable[p.TransactionID] = isConsumable
	return f.finishErr
}

func (f *fakeStore) PurchaseUpdates() <-chan RawPurchase { return f.updates }
func (f *fakeStore) PurchaseErrors() <-chan error        { return f.errs }

func (f *fakeStore) finishCount(txID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finishes[txID]
}

func (f *fakeStore) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type invocation struct {
	fn     string
	body   interface{}
	bearer string
}

type fakeInvoker struct {
	mu       sync.Mutex
	calls    []invocation
	response string
	err      error
}

func (f *fakeInvoker) Invoke(ctx context.Context, fn string, body interface{}, bearer string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{fn: fn, body: body, bearer: bearer})
	if f.err != nil {
		return nil, f.err
	}
	resp := f.response
	if resp == "" {
		resp = `{"valid":true}`
	}
	return json.RawMessage(resp), nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestClient(store *fakeStore, gw *fakeInvoker) *Client {
	return New(store, gw, Config{
		Platform:               PlatformIOS,
		TokenProductIDs:        []string{"tok.50"},
		SubscriptionProductIDs: []string{"sub.monthly"},
		BearerToken:            func() string { return "test-token" },
	})
}

func awaitSettlement(t *testing.T, ch <-chan Settlement) Settlement {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for settlement")
		return Settlement{}
	}
}

func TestInitializeAfterCloseReturnsError(t *testing.T) {
	store := newFakeStore()
	c := newTestClient(store, &fakeInvoker{})

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The listener and settlement stream are gone; a silent nil here would
	// leave purchases settling into the void.
	if err := c.Initialize(context.Background()); err == nil {
		t.Fatal("expected an error from Initialize on a closed client")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.initCalls != 1 {
		t.Errorf("store connection opened %d times, want 1", store.initCalls)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	store := newFakeStore()
	c := newTestClient(store, &fakeInvoker{})
	defer c.Close(context.Background())

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.initCalls != 1 {
		t.Errorf("store connection opened %d times, want 1", store.initCalls)
	}
	if store.fetchCalls[ProductTypeConsumable] != 1 {
		t.Errorf("token catalog fetched %d times, want 1", store.fetchCalls[ProductTypeConsumable])
	}
}

func TestInitializeSurvivesCatalogFailure(t *testing.T) {
	store := newFakeStore()
	store.fetchErr[ProductTypeConsumable] = errors.New("console misconfigured")
	c := newTestClient(store, &fakeInvoker{})
	defer c.Close(context.Background())

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize should succeed with a failed catalog: %v", err)
	}

	if err := c.PurchaseTokens(context.Background(), "tok.50"); err == nil {
		t.Error("expected failure for product in the failed catalog")
	}
	// Subscription catalog loaded independently.
	if err := c.SubscribeToPremium(context.Background(), "sub.monthly"); err != nil {
		t.Errorf("subscription catalog should be unaffected: %v", err)
	}
}

func TestFinalizeExactlyOnceEvenWhenInvalid(t *testing.T) {
	store := newFakeStore()
	gw := &fakeInvoker{response: `{"valid":false}`}
	c := newTestClient(store, gw)
	defer c.Close(context.Background())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.PurchaseTokens(context.Background(), "tok.50"); err != nil {
		t.Fatalf("purchase request failed: %v", err)
	}
	if store.requestCount() != 1 {
		t.Fatalf("got %d purchase requests, want 1", store.requestCount())
	}
	store.mu.Lock()
	req := store.requests[0]
	store.mu.Unlock()
	if req.SKU != "tok.50" || req.ProductID != "tok.50" {
		t.Errorf("request should carry the id under both field names, got %+v", req)
	}

	store.updates <- RawPurchase{
		ProductID:          "tok.50",
		TransactionID:      "txn-1",
		TransactionReceipt: "receipt-data",
	}

	s := awaitSettlement(t, c.Settlements())
	if s.TransactionID != "txn-1" {
		t.Fatalf("settled wrong transaction: %q", s.TransactionID)
	}
	if s.Valid {
		t.Error("settlement should carry the failed validation verdict")
	}
	if got := store.finishCount("txn-1"); got != 1 {
		t.Errorf("transaction finalized %d times, want exactly 1", got)
	}
	store.mu.Lock()
	consumable := store.consumable["txn-1"]
	store.mu.Unlock()
	if !consumable {
		t.Error("token product must be finalized as consumable")
	}
}

func TestValidationErrorStillFinalizesAtMostTwice(t *testing.T) {
	store := newFakeStore()
	gw := &fakeInvoker{err: errors.New("validation endpoint down")}
	c := newTestClient(store, gw)
	defer c.Close(context.Background())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.updates <- RawPurchase{
		ProductID:          "tok.50",
		TransactionID:      "txn-2",
		TransactionReceipt: "receipt-data",
	}

	s := awaitSettlement(t, c.Settlements())
	if s.Err == nil {
		t.Error("settlement should report the validation error")
	}
	got := store.finishCount("txn-2")
	if got < 2 {
		t.Errorf("expected an extra finalize attempt after the error, got %d", got)
	}
	if got > 2 {
		t.Errorf("transaction finalized %d times, never more than twice", got)
	}
}

func TestUnknownProductMakesNoStoreCall(t *testing.T) {
	store := newFakeStore()
	c := newTestClient(store, &fakeInvoker{})
	defer c.Close(context.Background())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.PurchaseTokens(context.Background(), "tok.unknown"); err == nil {
		t.Error("expected descriptive failure for unknown token product")
	}
	if err := c.SubscribeToPremium(context.Background(), "sub.unknown"); err == nil {
		t.Error("expected descriptive failure for unknown subscription product")
	}
	if store.requestCount() != 0 {
		t.Errorf("store received %d purchase requests, want 0", store.requestCount())
	}
}

func TestEmptySubscriptionCatalogReloadedOnce(t *testing.T) {
	store := newFakeStore()
	store.products[ProductTypeSubscription] = nil
	c := newTestClient(store, &fakeInvoker{})
	defer c.Close(context.Background())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := c.SubscribeToPremium(context.Background(), "sub.monthly")
	if err == nil {
		t.Fatal("expected failure when the reload still yields no products")
	}

	store.mu.Lock()
	fetches := store.fetchCalls[ProductTypeSubscription]
	store.mu.Unlock()
	if fetches != 2 { // one at initialize, exactly one reload
		t.Errorf("subscription catalog fetched %d times, want 2", fetches)
	}
	if store.requestCount() != 0 {
		t.Errorf("store received %d purchase requests, want 0", store.requestCount())
	}
}

func TestRedeliveredTransactionSkipsValidation(t *testing.T) {
	store := newFakeStore()
	gw := &fakeInvoker{}
	c := newTestClient(store, gw)
	defer c.Close(context.Background())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := RawPurchase{
		ProductID:          "tok.50",
		TransactionID:      "txn-3",
		TransactionReceipt: "receipt-data",
	}
	store.updates <- raw
	first := awaitSettlement(t, c.Settlements())
	if first.Redelivered {
		t.Error("first delivery should not be marked redelivered")
	}

	store.updates <- raw
	second := awaitSettlement(t, c.Settlements())
	if !second.Redelivered {
		t.Error("second delivery should be marked redelivered")
	}

	if gw.callCount() != 1 {
		t.Errorf("receipt validated %d times, want 1", gw.callCount())
	}
	if got := store.finishCount("txn-3"); got != 2 {
		t.Errorf("finalized %d times across two deliveries, want 2", got)
	}
}

func TestAndroidEventUsesPurchaseToken(t *testing.T) {
	raw := RawPurchase{
		SKU:           "tok.50",
		TransactionID: "gpa-1",
		PurchaseToken: "play-token",
	}
	ev, err := normalizePurchaseEvent(raw, PlatformAndroid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ProductID != "tok.50" {
		t.Errorf("product id %q, want tok.50", ev.ProductID)
	}
	if ev.Receipt != "play-token" {
		t.Errorf("receipt %q, want the purchase token", ev.Receipt)
	}
}
