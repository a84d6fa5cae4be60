package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/catalog"
	"github.com/gemfashion/storefront/checkout"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/notify"
	"github.com/gemfashion/storefront/payment/mpesa"
)

func newStore(t *testing.T, memory core.Memory, payer checkout.Payer) *Store {
	t.Helper()
	s := New(context.Background(), "client-1", Deps{
		Memory:          memory,
		Payer:           payer,
		NotificationTTL: time.Minute,
		SearchDebounce:  10 * time.Millisecond,
	})
	t.Cleanup(s.Close)
	return s
}

func messages(q *notify.Queue) []string {
	var out []string
	for _, n := range q.List() {
		out = append(out, n.Message)
	}
	return out
}

func TestStore_Defaults(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))

	assert.Empty(t, s.Cart())
	assert.Empty(t, s.Wishlist())
	assert.Equal(t, Light, s.Theme())
	assert.Equal(t, catalog.AllCategories, s.Filter().Category)
	assert.Len(t, s.VisibleProducts(), 6)
	assert.Equal(t, checkout.Viewing, s.Checkout().State)
}

func TestStore_AddToCart(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))
	ctx := context.Background()

	_, err := s.AddToCart(ctx, 4, 2)
	require.NoError(t, err)
	c, err := s.AddToCart(ctx, 4, 0)
	require.NoError(t, err)

	require.Len(t, c, 1)
	assert.Equal(t, 3, c[0].Quantity)
	assert.Equal(t, []string{"2 x Cotton T-Shirt added to cart!", "1 x Cotton T-Shirt added to cart!"}, messages(s.Notifications()))
	assert.True(t, decimal.RequireFromString("74.97").Equal(s.CartTotal()))

	_, err = s.AddToCart(ctx, 99, 1)
	assert.True(t, errors.Is(err, core.ErrProductNotFound))
}

func TestStore_CartEdits(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))
	ctx := context.Background()
	_, _ = s.AddToCart(ctx, 1, 1)
	_, _ = s.AddToCart(ctx, 2, 1)

	c, err := s.UpdateQuantity(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, cart.Count(c))
	c, _ = s.UpdateQuantity(ctx, 1, 0)
	assert.Equal(t, 1, cart.Count(c))
	c, _ = s.RemoveFromCart(ctx, 2)
	assert.Empty(t, c)

	_, _ = s.AddToCart(ctx, 3, 1)
	c, err = s.ClearCart(ctx)
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestStore_ToggleWishlist(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))
	ctx := context.Background()

	w, added, err := s.ToggleWishlist(ctx, 5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, cart.Wishlist{5}, w)

	w, added, err = s.ToggleWishlist(ctx, 5)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, w)

	list := s.Notifications().List()
	require.Len(t, list, 2)
	assert.Equal(t, MsgAddedToWishlist, list[0].Message)
	assert.Equal(t, notify.Success, list[0].Severity)
	assert.Equal(t, MsgRemovedFromWishlist, list[1].Message)
	assert.Equal(t, notify.Info, list[1].Severity)

	_, _, err = s.ToggleWishlist(ctx, 0)
	assert.True(t, errors.Is(err, core.ErrProductNotFound))
}

func TestStore_ThemePersists(t *testing.T) {
	memory := core.NewMemoryStore()
	s := newStore(t, memory, mpesa.Always("ok"))
	assert.Equal(t, Dark, s.ToggleTheme(context.Background()))

	reloaded := newStore(t, memory, mpesa.Always("ok"))
	assert.Equal(t, Dark, reloaded.Theme())
	assert.Equal(t, Light, reloaded.ToggleTheme(context.Background()))
}

func TestStore_CorruptThemeFallsBackToLight(t *testing.T) {
	memory := core.NewMemoryStore()
	require.NoError(t, memory.Set(context.Background(), "client-1:theme", `"purple"`, 0))

	s := newStore(t, memory, mpesa.Always("ok"))
	assert.Equal(t, Light, s.Theme())
}

func TestStore_Filters(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))

	f := s.SelectCategory("shoes")
	assert.Equal(t, "shoes", f.Category)
	assert.True(t, decimal.NewFromInt(129).Equal(f.PriceRange.Min))
	assert.True(t, decimal.NewFromInt(130).Equal(f.PriceRange.Max))
	require.Len(t, s.VisibleProducts(), 1)

	assert.Equal(t, "shoes", s.SelectCategory("hats").Category, "unknown categories are ignored")

	s.SelectCategory(catalog.AllCategories)
	f = s.SetPriceRange(amount(0), amount(200))
	assert.True(t, decimal.NewFromInt(24).Equal(f.PriceRange.Min), "min clamped to bounds")
	assert.Len(t, s.VisibleProducts(), 4)

	f = s.ResetPrice()
	assert.True(t, decimal.NewFromInt(350).Equal(f.PriceRange.Max))
}

func amount(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func TestStore_PriceSlidersNeverCross(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))

	f := s.SetPriceRange(nil, amount(100))
	assert.True(t, decimal.NewFromInt(24).Equal(f.PriceRange.Min), "min untouched")
	assert.True(t, decimal.NewFromInt(100).Equal(f.PriceRange.Max))

	f = s.SetPriceRange(amount(300), amount(100))
	assert.True(t, decimal.NewFromInt(100).Equal(f.PriceRange.Min), "min stops at max")
	assert.True(t, decimal.NewFromInt(100).Equal(f.PriceRange.Max), "max stays put")

	f = s.SetPriceRange(amount(50), nil)
	assert.True(t, decimal.NewFromInt(50).Equal(f.PriceRange.Min))
	assert.True(t, decimal.NewFromInt(100).Equal(f.PriceRange.Max))

	f = s.SetPriceRange(nil, amount(10))
	assert.True(t, decimal.NewFromInt(50).Equal(f.PriceRange.Max), "max stops at min")
}

func TestStore_SearchIsDebounced(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))

	s.SetSearch("w")
	s.SetSearch("wa")
	s.SetSearch("watch")
	assert.Empty(t, s.Filter().SearchText, "nothing applies before the quiet period")

	require.Eventually(t, func() bool { return s.Filter().SearchText == "watch" }, time.Second, 5*time.Millisecond)
	require.Len(t, s.VisibleProducts(), 1)
	assert.Equal(t, "Luxury Watch", s.VisibleProducts()[0].Name)

	s.SetSearch("  coat ")
	assert.Equal(t, "coat", s.FlushSearch().SearchText)
}

func TestStore_Subscribe(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))

	assert.NoError(t, s.Subscribe("me@example.com"))
	err := s.Subscribe("nope")
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, []string{MsgSubscribed, MsgInvalidEmail}, messages(s.Notifications()))
}

func TestStore_CheckoutScenario(t *testing.T) {
	payer := mpesa.Always("Payment of 200 for number 254746079270 was successful.")
	s := newStore(t, core.NewMemoryStore(), payer)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, 1, 2)
	require.NoError(t, err)

	s.OpenCheckout()
	assert.Equal(t, checkout.Paying, s.ProceedToPayment().State)

	done, err := s.Pay(ctx, "254746079270")
	require.NoError(t, err)
	snap := <-done

	assert.Equal(t, checkout.Success, snap.State)
	assert.Empty(t, s.Cart())
	assert.Contains(t, messages(s.Notifications()), MsgPaymentSuccessful)

	calls := payer.Calls()
	require.Len(t, calls, 1)
	assert.True(t, decimal.RequireFromString("399.98").Equal(calls[0].Amount))
}

func TestStore_CheckoutInvalidPhone(t *testing.T) {
	payer := mpesa.Always("ok")
	s := newStore(t, core.NewMemoryStore(), payer)
	_, _ = s.AddToCart(context.Background(), 1, 1)

	s.OpenCheckout()
	s.ProceedToPayment()
	_, err := s.Pay(context.Background(), "12345")
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, checkout.Paying, s.Checkout().State)
	assert.Equal(t, checkout.InvalidPhoneMessage, s.Checkout().Error)
	assert.Empty(t, payer.Calls())
}

func TestStore_EmptyCartCannotProceed(t *testing.T) {
	s := newStore(t, core.NewMemoryStore(), mpesa.Always("ok"))
	s.OpenCheckout()
	assert.Equal(t, checkout.Viewing, s.ProceedToPayment().State)
	assert.Equal(t, checkout.Viewing, s.BackToCart().State)
}

func TestStore_CloseRefusedWhileProcessing(t *testing.T) {
	payer := mpesa.Always("ok").Gated()
	s := newStore(t, core.NewMemoryStore(), payer)
	_, _ = s.AddToCart(context.Background(), 1, 1)
	s.OpenCheckout()
	s.ProceedToPayment()

	done, err := s.Pay(context.Background(), "254712345678")
	require.NoError(t, err)

	_, err = s.CloseCheckout()
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))

	payer.Release()
	<-done
	snap, err := s.CloseCheckout()
	require.NoError(t, err)
	assert.False(t, snap.Open)
}

func TestStore_CartLockedWhileProcessing(t *testing.T) {
	payer := mpesa.Always("ok").Gated()
	s := newStore(t, core.NewMemoryStore(), payer)
	ctx := context.Background()
	_, _ = s.AddToCart(ctx, 1, 1)
	s.OpenCheckout()
	s.ProceedToPayment()

	done, err := s.Pay(ctx, "254712345678")
	require.NoError(t, err)

	_, err = s.AddToCart(ctx, 2, 1)
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))
	_, err = s.UpdateQuantity(ctx, 1, 3)
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))
	_, err = s.RemoveFromCart(ctx, 1)
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))
	c, err := s.ClearCart(ctx)
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))
	assert.Len(t, c, 1)

	payer.Release()
	assert.Equal(t, checkout.Success, (<-done).State)
	assert.Empty(t, s.Cart())

	c, err = s.AddToCart(ctx, 2, 1)
	require.NoError(t, err)
	assert.Len(t, c, 1)
}

func TestStore_PayRefusesEmptyCart(t *testing.T) {
	payer := mpesa.Always("ok")
	s := newStore(t, core.NewMemoryStore(), payer)
	ctx := context.Background()
	_, _ = s.AddToCart(ctx, 1, 1)
	s.OpenCheckout()
	require.Equal(t, checkout.Paying, s.ProceedToPayment().State)

	_, err := s.ClearCart(ctx)
	require.NoError(t, err)

	done, err := s.Pay(ctx, "254712345678")
	assert.Nil(t, done)
	assert.True(t, errors.Is(err, core.ErrInvalidState))
	assert.Equal(t, core.KindState, core.KindOf(err))
	assert.Equal(t, checkout.Paying, s.Checkout().State)
	assert.Empty(t, payer.Calls())
}

func TestWithoutPaid(t *testing.T) {
	bag, _ := catalog.Lookup(2)
	watch, _ := catalog.Lookup(1)
	current := cart.Add(cart.Add(cart.Clear(), watch, 3), bag, 1)
	paid := cart.Add(cart.Clear(), watch, 2)

	left := withoutPaid(current, paid)
	require.Len(t, left, 2)
	assert.Equal(t, 1, left[0].Quantity)
	assert.Equal(t, bag.ID, left[1].ID)

	assert.Empty(t, withoutPaid(paid, paid))
}

func TestStore_RedisBacked(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := core.NewRedisClient(core.RedisClientOptions{RedisURL: "redis://" + mr.Addr(), DB: -1, Namespace: "sf"})
	require.NoError(t, err)
	defer rc.Close()

	s := newStore(t, rc, mpesa.Always("ok"))
	_, err = s.AddToCart(context.Background(), 2, 1)
	require.NoError(t, err)

	raw, err := mr.Get("sf:client-1:cart")
	require.NoError(t, err)
	assert.Contains(t, raw, `"Designer Bag"`)

	mr.Close()
	_, err = s.AddToCart(context.Background(), 2, 1)
	require.NoError(t, err, "storage failures never surface to the shopper")
	assert.True(t, s.Degraded())
	assert.Equal(t, 2, s.Cart()[0].Quantity)
}
