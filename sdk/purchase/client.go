package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
)

// FinalizationPolicy names what happens to a delivered transaction after the
// receipt check. The only supported policy finalizes regardless of the
// validation verdict: an invalid receipt earns no credit, but leaving the
// transaction queued would block the user from ever retrying.
type FinalizationPolicy int

const FinalizeAlways FinalizationPolicy = iota

// Invoker calls a named server-side function with a JSON body and bearer
// token. gateway.Client satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, fn string, body interface{}, bearer string) (json.RawMessage, error)
}

type Config struct {
	Platform string

	// Static product id lists; catalogs are fetched for these at Initialize.
	TokenProductIDs        []string
	SubscriptionProductIDs []string

	// BearerToken supplies the current session's access token for the
	// receipt-validation call.
	BearerToken func() string
}

// Settlement reports the outcome of one delivered transaction after
// validation and finalization.
type Settlement struct {
	TransactionID string
	ProductID     string
	Valid         bool
	Redelivered   bool
	Err           error
}

// Client owns the store connection lifecycle and the purchase
// reconciliation loop. Construct with New, call Initialize before use and
// Close when done; instances are independent so tests can run in isolation.
type Client struct {
	conn    StoreConnection
	gw      Invoker
	cfg     Config
	policy  FinalizationPolicy

	mu          sync.Mutex
	initialized bool
	closed      bool
	tokens      map[string]Product
	subs        map[string]Product
	settled     map[string]bool

	settlements chan Settlement
	done        chan struct{}
	wg          sync.WaitGroup
}

func New(conn StoreConnection, gw Invoker, cfg Config) *Client {
	return &Client{
		conn:        conn,
		gw:          gw,
		cfg:         cfg,
		policy:      FinalizeAlways,
		tokens:      map[string]Product{},
		subs:        map[string]Product{},
		settled:     map[string]bool{},
		settlements: make(chan Settlement, 16),
		done:        make(chan struct{}),
	}
}

// Initialize opens the store connection, loads both catalogs and starts the
// purchase listener. Idempotent: a second call returns nil without touching
// the store. The lifecycle is one-shot: after Close the instance is spent
// and Initialize errors; build a new Client instead. A catalog that fails to
// load is logged and left empty; the store commonly misreports products
// during vendor-console misconfiguration and that must not take the whole
// purchase surface down.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("purchase client is closed")
	}
	if c.initialized {
		return nil
	}

	if err := c.conn.InitConnection(ctx); err != nil {
		return fmt.Errorf("open store connection: %w", err)
	}

	c.tokens = c.loadCatalog(ctx, c.cfg.TokenProductIDs, ProductTypeConsumable)
	c.subs = c.loadCatalog(ctx, c.cfg.SubscriptionProductIDs, ProductTypeSubscription)

	c.wg.Add(1)
	go c.listen()

	c.initialized = true
	return nil
}

// Close stops the listener and ends the store connection. The settlements
// channel is closed once the listener has drained.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.initialized {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.initialized = false
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	close(c.settlements)
	return c.conn.EndConnection(ctx)
}

// Settlements exposes the stream of reconciled transactions so callers can
// await a specific purchase deterministically instead of polling state.
func (c *Client) Settlements() <-chan Settlement {
	return c.settlements
}

func (c *Client) loadCatalog(ctx context.Context, skus []string, typ ProductType) map[string]Product {
	catalog := map[string]Product{}
	if len(skus) == 0 {
		return catalog
	}
	products, err := c.conn.FetchProducts(ctx, skus, typ)
	if err != nil {
		log.Printf("purchase: loading %s catalog failed, continuing with none: %v", typ, err)
		return catalog
	}
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog
}

// PurchaseTokens requests the native purchase dialog for a consumable token
// product. A nil return means the dialog was requested, not that the
// purchase settled; settlement arrives later through Settlements.
func (c *Client) PurchaseTokens(ctx context.Context, productID string) error {
	c.mu.Lock()
	_, ok := c.tokens[productID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("token product %q is not in the loaded catalog", productID)
	}
	return c.requestPurchase(ctx, productID, ProductTypeConsumable)
}

// SubscribeToPremium requests the subscription purchase dialog. An empty
// subscription catalog is reloaded exactly once before giving up.
func (c *Client) SubscribeToPremium(ctx context.Context, productID string) error {
	c.mu.Lock()
	if len(c.subs) == 0 {
		c.subs = c.loadCatalog(ctx, c.cfg.SubscriptionProductIDs, ProductTypeSubscription)
	}
	_, ok := c.subs[productID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("subscription product %q is not in the loaded catalog", productID)
	}
	return c.requestPurchase(ctx, productID, ProductTypeSubscription)
}

func (c *Client) requestPurchase(ctx context.Context, productID string, typ ProductType) error {
	req := PurchaseRequest{SKU: productID, ProductID: productID}
	if err := c.conn.RequestPurchase(ctx, req, typ); err != nil {
		return fmt.Errorf("request purchase %q: %w", productID, err)
	}
	return nil
}

func (c *Client) listen() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case raw, ok := <-c.conn.PurchaseUpdates():
			if !ok {
				return
			}
			c.settle(context.Background(), raw)
		case err, ok := <-c.conn.PurchaseErrors():
			if !ok {
				return
			}
			log.Printf("purchase: store error: %v", err)
		}
	}
}

// settle reconciles one delivered transaction: validate the receipt with
// the server, then finalize under the FinalizeAlways policy. After a
// processing error one extra finalize attempt is made; a transaction id is
// never finalized more than twice per delivery. A transaction id seen
// earlier this session skips validation and goes straight to finalize,
// which covers the platform redelivering after a crash mid-reconcile.
func (c *Client) settle(ctx context.Context, raw RawPurchase) {
	ev, err := normalizePurchaseEvent(raw, c.cfg.Platform)
	if err != nil {
		log.Printf("purchase: dropping malformed event: %v", err)
		return
	}
	isConsumable := c.isTokenProduct(ev.ProductID)

	c.mu.Lock()
	redelivered := c.settled[ev.TransactionID]
	c.settled[ev.TransactionID] = true
	c.mu.Unlock()

	if redelivered {
		if err := c.conn.FinishTransaction(ctx, raw, isConsumable); err != nil {
			log.Printf("purchase: finalize redelivered %s: %v", ev.TransactionID, err)
		}
		c.emit(Settlement{TransactionID: ev.TransactionID, ProductID: ev.ProductID, Redelivered: true})
		return
	}

	valid, validationErr := c.validateReceipt(ctx, ev)
	if validationErr != nil {
		log.Printf("purchase: receipt validation for %s: %v", ev.TransactionID, validationErr)
	} else if !valid {
		log.Printf("purchase: receipt for %s rejected, finalizing anyway", ev.TransactionID)
	}

	finishErr := c.conn.FinishTransaction(ctx, raw, isConsumable)
	if finishErr != nil {
		log.Printf("purchase: finalize %s: %v", ev.TransactionID, finishErr)
	}
	if validationErr != nil || finishErr != nil {
		// One more try after a processing error, then give up; a stuck
		// transaction resurfaces on next launch anyway.
		if err := c.conn.FinishTransaction(ctx, raw, isConsumable); err != nil {
			log.Printf("purchase: second finalize attempt for %s: %v", ev.TransactionID, err)
		}
	}

	c.emit(Settlement{
		TransactionID: ev.TransactionID,
		ProductID:     ev.ProductID,
		Valid:         valid,
		Err:           validationErr,
	})
}

func (c *Client) validateReceipt(ctx context.Context, ev PurchaseEvent) (bool, error) {
	var bearer string
	if c.cfg.BearerToken != nil {
		bearer = c.cfg.BearerToken()
	}
	data, err := c.gw.Invoke(ctx, "validate-receipt", map[string]interface{}{
		"platform":       c.cfg.Platform,
		"product_id":     ev.ProductID,
		"receipt":        ev.Receipt,
		"transaction_id": ev.TransactionID,
	}, bearer)
	if err != nil {
		return false, err
	}

	var result struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("decode validation result: %w", err)
	}
	return result.Valid, nil
}

func (c *Client) isTokenProduct(productID string) bool {
	for _, id := range c.cfg.TokenProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

func (c *Client) emit(s Settlement) {
	select {
	case c.settlements <- s:
	default:
		log.Printf("purchase: settlement stream full, dropping %s", s.TransactionID)
	}
}
