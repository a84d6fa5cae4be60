package storefront

import (
	"context"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/checkout"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/notify"
)

// Checkout returns the checkout state
func (s *Store) Checkout() checkout.Snapshot {
	return s.checkout.Snapshot()
}

// OpenCheckout shows the cart modal
func (s *Store) OpenCheckout() checkout.Snapshot {
	s.touch()
	return s.checkout.Open()
}

// CloseCheckout hides the cart modal; refused while a payment is processing
func (s *Store) CloseCheckout() (checkout.Snapshot, error) {
	s.touch()
	err := s.checkout.Close()
	return s.checkout.Snapshot(), err
}

// ProceedToPayment moves to the phone entry step when the cart has items
func (s *Store) ProceedToPayment() checkout.Snapshot {
	s.touch()
	return s.checkout.Proceed(s.Cart())
}

// BackToCart leaves the phone entry step
func (s *Store) BackToCart() checkout.Snapshot {
	s.touch()
	return s.checkout.Back()
}

// Pay charges the cart total to phone. The returned channel receives the
// final checkout snapshot. An empty cart is refused.
func (s *Store) Pay(ctx context.Context, phone string) (<-chan checkout.Snapshot, error) {
	s.touch()
	s.checkout.SetPhone(phone)

	s.payMu.Lock()
	defer s.payMu.Unlock()
	lines := s.Cart()
	if len(lines) == 0 {
		return nil, core.NewStoreError("storefront.Pay", core.KindState, core.ErrInvalidState)
	}
	done, err := s.checkout.Pay(ctx, cart.Total(lines))
	if err != nil {
		return nil, err
	}
	s.paid = lines
	return done, nil
}

// onPaid removes the charged lines from the cart and announces the order
func (s *Store) onPaid(ctx context.Context, receipt string) {
	s.payMu.Lock()
	paid := s.paid
	s.paid = nil
	s.cart.Update(ctx, func(c cart.Cart) cart.Cart { return withoutPaid(c, paid) })
	s.payMu.Unlock()

	s.notes.Notify(MsgPaymentSuccessful, notify.Success)
	s.logger.InfoWithContext(ctx, "Order placed", map[string]interface{}{
		"client_id": s.clientID,
		"receipt":   receipt,
	})
}

// withoutPaid subtracts the paid quantities from c. Lines added after the
// payment settled survive.
func withoutPaid(c, paid cart.Cart) cart.Cart {
	for _, p := range paid {
		if cur, ok := cart.Find(c, p.ID); ok {
			c = cart.UpdateQuantity(c, p.ID, cur.Quantity-p.Quantity)
		}
	}
	return c
}
