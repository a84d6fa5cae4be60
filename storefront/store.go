// Package storefront owns one shopper's state: the persisted cart, wishlist
// and theme, the catalog filters, toast notifications and the checkout flow.
package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/catalog"
	"github.com/gemfashion/storefront/checkout"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/debounce"
	"github.com/gemfashion/storefront/notify"
	"github.com/gemfashion/storefront/persist"
)

// Theme is the colour scheme
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Notification texts
const (
	MsgAddedToWishlist     = "Added to wishlist!"
	MsgRemovedFromWishlist = "Removed from wishlist."
	MsgPaymentSuccessful   = "Payment successful! Your order has been placed."
	MsgSubscribed          = "Thank you for subscribing!"
	MsgInvalidEmail        = "Please enter a valid email."
)

func addedToCartMessage(qty int, name string) string {
	return fmt.Sprintf("%d x %s added to cart!", qty, name)
}

// Deps are the collaborators shared by every Store
type Deps struct {
	Memory          core.Memory
	Payer           checkout.Payer
	Logger          core.Logger
	Telemetry       core.Telemetry
	NotificationTTL time.Duration
	SearchDebounce  time.Duration
	StorageTTL      time.Duration
}

// Store is the root state for one client. It is safe for concurrent use.
type Store struct {
	clientID string
	products []catalog.Product

	cart     *persist.Binding[cart.Cart]
	wishlist *persist.Binding[cart.Wishlist]
	theme    *persist.Binding[Theme]

	mu       sync.Mutex
	filter   catalog.FilterState
	lastSeen time.Time

	// payMu orders cart edits against the start of a payment. paid holds
	// the lines charged by the current attempt.
	payMu sync.Mutex
	paid  cart.Cart

	search   *debounce.Debouncer[string]
	notes    *notify.Queue
	checkout *checkout.Machine

	logger    core.Logger
	telemetry core.Telemetry
}

// New loads the persisted state for clientID and wires the checkout flow
func New(ctx context.Context, clientID string, deps Deps) *Store {
	logger := core.ForComponent(deps.Logger, "storefront/store")
	telemetry := deps.Telemetry
	if telemetry == nil {
		telemetry = &core.NoOpTelemetry{}
	}

	popts := []persist.Option{persist.WithLogger(logger), persist.WithTTL(deps.StorageTTL)}
	products := catalog.Products()

	s := &Store{
		clientID:  clientID,
		products:  products,
		cart:      persist.New(ctx, deps.Memory, core.ClientKey(clientID, core.KeyCart), cart.Cart{}, popts...),
		wishlist:  persist.New(ctx, deps.Memory, core.ClientKey(clientID, core.KeyWishlist), cart.Wishlist{}, popts...),
		theme:     persist.New(ctx, deps.Memory, core.ClientKey(clientID, core.KeyTheme), Light, popts...),
		filter:    catalog.NewFilterState(products),
		lastSeen:  time.Now(),
		notes:     notify.NewQueue(deps.NotificationTTL),
		logger:    logger,
		telemetry: telemetry,
	}
	if t := s.theme.Get(); t != Light && t != Dark {
		s.theme.Set(ctx, Light)
	}

	delay := deps.SearchDebounce
	if delay <= 0 {
		delay = core.DefaultSearchDebounce
	}
	s.search = debounce.New(delay, s.applySearch)

	s.checkout = checkout.NewMachine(deps.Payer,
		checkout.WithOnPaid(s.onPaid),
		checkout.WithLogger(deps.Logger),
		checkout.WithTelemetry(telemetry),
	)
	return s
}

// ClientID returns the owning client identifier
func (s *Store) ClientID() string {
	return s.clientID
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the most recent action
func (s *Store) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Degraded reports whether any persisted entry has fallen back to memory only
func (s *Store) Degraded() bool {
	return s.cart.Degraded() || s.wishlist.Degraded() || s.theme.Degraded()
}

// Notifications exposes the toast queue
func (s *Store) Notifications() *notify.Queue {
	return s.notes
}

// Close stops timers and abandons any in-flight payment
func (s *Store) Close() {
	s.search.Stop()
	s.checkout.Reset()
	s.notes.Close()
}

// ---- cart ----

// Cart returns the cart contents
func (s *Store) Cart() cart.Cart {
	return s.cart.Get()
}

// CartTotal returns the sum of line subtotals
func (s *Store) CartTotal() decimal.Decimal {
	return cart.Total(s.cart.Get())
}

// AddToCart adds qty of a product (1 when qty < 1) and announces it
func (s *Store) AddToCart(ctx context.Context, id, qty int) (cart.Cart, error) {
	s.touch()
	p, ok := catalog.Lookup(id)
	if !ok {
		return s.Cart(), fmt.Errorf("product %d: %w", id, core.ErrProductNotFound)
	}
	if qty < 1 {
		qty = 1
	}
	c, err := s.editCart(ctx, "storefront.AddToCart", func(c cart.Cart) cart.Cart { return cart.Add(c, p, qty) })
	if err != nil {
		return c, err
	}
	s.notes.Notify(addedToCartMessage(qty, p.Name), notify.Success)
	s.telemetry.RecordMetric("storefront.cart.items_added", float64(qty), nil)
	return c, nil
}

// UpdateQuantity sets a line's quantity; qty <= 0 removes it
func (s *Store) UpdateQuantity(ctx context.Context, id, qty int) (cart.Cart, error) {
	s.touch()
	return s.editCart(ctx, "storefront.UpdateQuantity", func(c cart.Cart) cart.Cart { return cart.UpdateQuantity(c, id, qty) })
}

// RemoveFromCart drops a line
func (s *Store) RemoveFromCart(ctx context.Context, id int) (cart.Cart, error) {
	s.touch()
	return s.editCart(ctx, "storefront.RemoveFromCart", func(c cart.Cart) cart.Cart { return cart.Remove(c, id) })
}

// ClearCart empties the cart
func (s *Store) ClearCart(ctx context.Context) (cart.Cart, error) {
	s.touch()
	return s.editCart(ctx, "storefront.ClearCart", func(cart.Cart) cart.Cart { return cart.Clear() })
}

// editCart applies fn unless a payment is processing; the charged lines
// must not change under it.
func (s *Store) editCart(ctx context.Context, op string, fn func(cart.Cart) cart.Cart) (cart.Cart, error) {
	s.payMu.Lock()
	defer s.payMu.Unlock()
	if s.checkout.Snapshot().State == checkout.Processing {
		return s.Cart(), core.NewStoreError(op, core.KindState, core.ErrPaymentInFlight)
	}
	return s.cart.Update(ctx, fn), nil
}

// ---- wishlist ----

// Wishlist returns the saved product ids
func (s *Store) Wishlist() cart.Wishlist {
	return s.wishlist.Get()
}

// ToggleWishlist adds or removes a product and announces which
func (s *Store) ToggleWishlist(ctx context.Context, id int) (cart.Wishlist, bool, error) {
	s.touch()
	if _, ok := catalog.Lookup(id); !ok {
		return s.Wishlist(), false, fmt.Errorf("product %d: %w", id, core.ErrProductNotFound)
	}
	var added bool
	w := s.wishlist.Update(ctx, func(w cart.Wishlist) cart.Wishlist {
		w, added = cart.Toggle(w, id)
		return w
	})
	if added {
		s.notes.Notify(MsgAddedToWishlist, notify.Success)
	} else {
		s.notes.Notify(MsgRemovedFromWishlist, notify.Info)
	}
	return w, added, nil
}

// ---- theme ----

// Theme returns the colour scheme
func (s *Store) Theme() Theme {
	return s.theme.Get()
}

// ToggleTheme flips between light and dark
func (s *Store) ToggleTheme(ctx context.Context) Theme {
	s.touch()
	return s.theme.Update(ctx, func(t Theme) Theme {
		if t == Dark {
			return Light
		}
		return Dark
	})
}

// ---- filters ----

// Filter returns the current filter state
func (s *Store) Filter() catalog.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// SelectCategory switches category and resets the price range to its
// bounds. Unknown categories are ignored.
func (s *Store) SelectCategory(category string) catalog.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	if catalog.HasCategory(category) {
		s.filter = s.filter.WithCategory(s.products, category)
	}
	return s.filter
}

// SetSearch schedules text to apply once typing pauses
func (s *Store) SetSearch(text string) {
	s.touch()
	s.search.Push(text)
}

// FlushSearch applies a pending search immediately
func (s *Store) FlushSearch() catalog.FilterState {
	s.search.Flush()
	return s.Filter()
}

func (s *Store) applySearch(text string) {
	s.mu.Lock()
	s.filter.SearchText = strings.TrimSpace(text)
	s.mu.Unlock()
}

// SetPriceRange moves the ends of the price window the way the sidebar
// sliders do: the minimum never passes the maximum and the maximum never drops
// below the minimum. A nil end is left where it is. The result stays inside
// the current category's bounds.
func (s *Store) SetPriceRange(min, max *decimal.Decimal) catalog.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()

	r := s.filter.PriceRange
	if min != nil {
		r = r.WithMin(*min)
	}
	if max != nil {
		r = r.WithMax(*max)
	}
	s.filter.PriceRange = r.Clamp(catalog.PriceBounds(s.products, s.filter.Category))
	return s.filter
}

// ResetPrice restores the full price window for the current category
func (s *Store) ResetPrice() catalog.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = s.filter.ResetPrice(s.products)
	return s.filter
}

// VisibleProducts returns the products passing the current filters
func (s *Store) VisibleProducts() []catalog.Product {
	return s.Filter().Apply(s.products)
}

// ---- newsletter ----

// Subscribe accepts any address containing "@" and announces the outcome
func (s *Store) Subscribe(email string) error {
	s.touch()
	if !strings.Contains(email, "@") {
		s.notes.Notify(MsgInvalidEmail, notify.Error)
		return core.ValidationError("storefront.Subscribe", MsgInvalidEmail, core.ErrInvalidEmail)
	}
	s.notes.Notify(MsgSubscribed, notify.Success)
	s.logger.Info("Newsletter subscription", map[string]interface{}{
		"client_id": s.clientID,
	})
	return nil
}
