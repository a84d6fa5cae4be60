package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/catalog"
	"github.com/gemfashion/storefront/core"
	"github.com/gemfashion/storefront/payment/mpesa"
)

func oneItemCart(t *testing.T) cart.Cart {
	t.Helper()
	p, ok := catalog.Lookup(1)
	require.True(t, ok)
	return cart.Add(nil, p, 1)
}

func payingMachine(t *testing.T, payer Payer, opts ...Option) *Machine {
	t.Helper()
	m := NewMachine(payer, opts...)
	m.Open()
	require.Equal(t, Paying, m.Proceed(oneItemCart(t)).State)
	return m
}

func TestProceed_EmptyCartStaysViewing(t *testing.T) {
	m := NewMachine(mpesa.Always("ok"))
	m.Open()

	assert.Equal(t, Viewing, m.Proceed(cart.Cart{}).State)
	assert.Equal(t, Viewing, m.Proceed(nil).State)
}

func TestIgnoredInputs(t *testing.T) {
	m := NewMachine(mpesa.Always("ok"))

	// closed machine ignores everything
	assert.Equal(t, Viewing, m.Proceed(oneItemCart(t)).State)

	m.Open()
	assert.Equal(t, "", m.SetPhone("254712345678").Phone, "phone only accepted in Paying")
	assert.Equal(t, Viewing, m.Back().State)

	_, err := m.Pay(context.Background(), decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, core.ErrInvalidState))
}

func TestPay_ValidPhoneSucceeds(t *testing.T) {
	var paidReceipt atomic.Value
	payer := mpesa.Always("Payment of 199.99 for number 254746079270 was successful.")
	m := payingMachine(t, payer, WithOnPaid(func(ctx context.Context, receipt string) {
		paidReceipt.Store(receipt)
	}))

	m.SetPhone("254746079270")
	snap, err := m.PayAndWait(context.Background(), decimal.RequireFromString("199.99"))
	require.NoError(t, err)

	assert.Equal(t, Success, snap.State)
	assert.Empty(t, snap.Error)
	assert.Equal(t, payer.Calls()[0].Phone, "254746079270")
	assert.Equal(t, "Payment of 199.99 for number 254746079270 was successful.", paidReceipt.Load())
}

func TestPay_InvalidPhoneNeverReachesPayer(t *testing.T) {
	payer := mpesa.Always("ok")
	m := payingMachine(t, payer)

	m.SetPhone("12345")
	done, err := m.Pay(context.Background(), decimal.NewFromInt(10))

	assert.Nil(t, done)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	snap := m.Snapshot()
	assert.Equal(t, Paying, snap.State)
	assert.Equal(t, InvalidPhoneMessage, snap.Error)
	assert.Empty(t, payer.Calls())
}

func TestPay_RejectsZeroPrefixedNumbers(t *testing.T) {
	// the simulator accepts 07..., the modal's own check does not
	m := payingMachine(t, mpesa.Always("ok"))
	m.SetPhone("0746079270")
	_, err := m.Pay(context.Background(), decimal.NewFromInt(1))
	assert.True(t, errors.Is(err, core.ErrInvalidPhoneNumber))
}

func TestPay_FailureReturnsToPaying(t *testing.T) {
	m := payingMachine(t, mpesa.AlwaysFail(mpesa.ErrCancelledByUser))

	m.SetPhone("254700000001")
	snap, err := m.PayAndWait(context.Background(), decimal.NewFromInt(10))
	require.NoError(t, err)

	assert.Equal(t, Paying, snap.State)
	assert.Equal(t, "The transaction was cancelled by the user.", snap.Error)
	assert.Equal(t, "254700000001", snap.Phone, "phone kept for a retry")
}

func TestPay_PlainErrorMessage(t *testing.T) {
	m := payingMachine(t, mpesa.AlwaysFail(errors.New("gateway exploded")))
	m.SetPhone("254712345678")
	snap, _ := m.PayAndWait(context.Background(), decimal.NewFromInt(1))
	assert.Equal(t, "gateway exploded", snap.Error)
}

func TestClose_RefusedWhileProcessing(t *testing.T) {
	payer := mpesa.Always("ok").Gated()
	m := payingMachine(t, payer)
	m.SetPhone("254746079270")

	done, err := m.Pay(context.Background(), decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, Processing, m.Snapshot().State)

	err = m.Close()
	assert.True(t, errors.Is(err, core.ErrPaymentInFlight))
	assert.True(t, m.Snapshot().Open)

	_, err = m.Pay(context.Background(), decimal.NewFromInt(5))
	assert.True(t, errors.Is(err, core.ErrInvalidState), "no re-entry while processing")

	payer.Release()
	snap := <-done
	assert.Equal(t, Success, snap.State)
	assert.NoError(t, m.Close())
}

func TestReopenAfterSuccess(t *testing.T) {
	m := payingMachine(t, mpesa.Always("ok"))
	m.SetPhone("254746079270")
	_, err := m.PayAndWait(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	snap := m.Open()

	assert.Equal(t, Viewing, snap.State)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Phone)
	assert.True(t, snap.Open)
}

func TestReset_DiscardsStaleResult(t *testing.T) {
	var paid atomic.Int32
	payer := mpesa.Always("ok").Gated()
	m := payingMachine(t, payer, WithOnPaid(func(context.Context, string) { paid.Add(1) }))
	m.SetPhone("254746079270")

	done, err := m.Pay(context.Background(), decimal.NewFromInt(1))
	require.NoError(t, err)

	m.Reset()
	payer.Release()

	select {
	case snap, ok := <-done:
		assert.False(t, ok, "stale attempt delivers nothing, got %+v", snap)
	case <-time.After(time.Second):
		t.Fatal("payment goroutine did not finish")
	}

	assert.Zero(t, paid.Load(), "stale success must not clear the cart")
	snap := m.Snapshot()
	assert.Equal(t, Viewing, snap.State)
	assert.False(t, snap.Open)
}

func TestPay_OutlivesRequestContext(t *testing.T) {
	payer := mpesa.Always("ok").Gated()
	m := payingMachine(t, payer)
	m.SetPhone("254746079270")

	ctx, cancel := context.WithCancel(context.Background())
	done, err := m.Pay(ctx, decimal.NewFromInt(1))
	require.NoError(t, err)
	cancel()

	payer.Release()
	assert.Equal(t, Success, (<-done).State)
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(Snapshot{State: Processing})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"processing"`)

	var s State
	require.NoError(t, s.UnmarshalText([]byte("success")))
	assert.Equal(t, Success, s)
	assert.Error(t, s.UnmarshalText([]byte("lost")))
	assert.Equal(t, "state(9)", State(9).String())
}
