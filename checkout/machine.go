// Package checkout drives the cart modal's payment flow:
//
//	Viewing --Proceed(non-empty cart)--> Paying --Pay(valid phone)--> Processing
//	Processing --payer ok--> Success
//	Processing --payer error--> Paying (error shown)
//	Paying --Back--> Viewing
//
// Inputs that do not apply to the current state are ignored.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/cart"
	"github.com/gemfashion/storefront/core"
)

// InvalidPhoneMessage is shown when the phone number fails the local check
const InvalidPhoneMessage = "Please enter a valid Safaricom phone number (e.g., 254712345678)."

var safaricomPhone = regexp.MustCompile(`^(254)?7\d{8}$`)

// Payer initiates a payment and blocks until it resolves
type Payer interface {
	StkPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error)
}

// PaidFunc runs once for each payment that completes for the current attempt
type PaidFunc func(ctx context.Context, receipt string)

// Snapshot is a consistent copy of the machine's observable fields
type Snapshot struct {
	State   State  `json:"state"`
	Phone   string `json:"phone"`
	Error   string `json:"error,omitempty"`
	Open    bool   `json:"open"`
	Receipt string `json:"receipt,omitempty"`
	Attempt uint64 `json:"attempt"`
}

// Machine is the checkout state for one shopper. It is safe for concurrent use.
type Machine struct {
	mu      sync.Mutex
	state   State
	phone   string
	errMsg  string
	open    bool
	receipt string
	attempt uint64
	cancel  context.CancelFunc

	payer     Payer
	onPaid    PaidFunc
	logger    core.Logger
	telemetry core.Telemetry
}

// Option configures a Machine
type Option func(*Machine)

// WithOnPaid sets the hook run when a payment succeeds
func WithOnPaid(fn PaidFunc) Option {
	return func(m *Machine) { m.onPaid = fn }
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTelemetry sets the telemetry used for payment spans
func WithTelemetry(t core.Telemetry) Option {
	return func(m *Machine) {
		if t != nil {
			m.telemetry = t
		}
	}
}

// NewMachine returns a closed machine in Viewing
func NewMachine(payer Payer, opts ...Option) *Machine {
	m := &Machine{
		state:     Viewing,
		payer:     payer,
		onPaid:    func(context.Context, string) {},
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns the current observable state
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		State:   m.state,
		Phone:   m.phone,
		Error:   m.errMsg,
		Open:    m.open,
		Receipt: m.receipt,
		Attempt: m.attempt,
	}
}

// Open shows the modal. A closed machine resets to Viewing with no phone and
// no error; an already open one is left alone.
func (m *Machine) Open() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		m.resetLocked()
		m.open = true
	}
	return m.snapshotLocked()
}

// Close hides the modal. It is refused while a payment is processing.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Processing {
		return core.NewStoreError("checkout.Close", core.KindState, core.ErrPaymentInFlight)
	}
	m.open = false
	return nil
}

// Proceed moves Viewing to Paying when the cart has items
func (m *Machine) Proceed(c cart.Cart) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open && m.state == Viewing && len(c) > 0 {
		m.state = Paying
	}
	return m.snapshotLocked()
}

// Back returns from Paying to Viewing
func (m *Machine) Back() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open && m.state == Paying {
		m.state = Viewing
	}
	return m.snapshotLocked()
}

// SetPhone records the phone number being typed; only accepted in Paying
func (m *Machine) SetPhone(phone string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open && m.state == Paying {
		m.phone = phone
	}
	return m.snapshotLocked()
}

// Pay charges amount to the current phone number.
//
// Outside Paying it returns ErrInvalidState and changes nothing. A phone that
// fails the local check sets the validation message, keeps the machine in
// Paying and never reaches the payer. Otherwise the machine enters Processing,
// the payer runs in the background and the returned channel receives the
// final snapshot once it resolves, then closes.
//
// The payment outlives ctx cancellation; it ends when it resolves or the
// machine is Reset.
func (m *Machine) Pay(ctx context.Context, amount decimal.Decimal) (<-chan Snapshot, error) {
	m.mu.Lock()

	if !m.open || m.state != Paying {
		m.mu.Unlock()
		return nil, core.NewStoreError("checkout.Pay", core.KindState, core.ErrInvalidState)
	}

	if !safaricomPhone.MatchString(m.phone) {
		m.errMsg = InvalidPhoneMessage
		m.mu.Unlock()
		return nil, core.ValidationError("checkout.Pay", InvalidPhoneMessage, core.ErrInvalidPhoneNumber)
	}

	m.errMsg = ""
	m.receipt = ""
	m.state = Processing
	m.attempt++
	attempt := m.attempt
	phone := m.phone

	payCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	m.logger.InfoWithContext(ctx, "Payment started", map[string]interface{}{
		"attempt": attempt,
		"amount":  amount.String(),
	})

	done := make(chan Snapshot, 1)
	go m.run(payCtx, cancel, attempt, phone, amount, done)
	return done, nil
}

// PayAndWait is Pay followed by waiting for the final snapshot or ctx.
func (m *Machine) PayAndWait(ctx context.Context, amount decimal.Decimal) (Snapshot, error) {
	done, err := m.Pay(ctx, amount)
	if err != nil {
		return m.Snapshot(), err
	}
	select {
	case snap, ok := <-done:
		if !ok {
			return m.Snapshot(), nil
		}
		return snap, nil
	case <-ctx.Done():
		return m.Snapshot(), ctx.Err()
	}
}

func (m *Machine) run(ctx context.Context, cancel context.CancelFunc, attempt uint64, phone string, amount decimal.Decimal, done chan<- Snapshot) {
	defer close(done)
	defer cancel()

	ctx, span := m.telemetry.StartSpan(ctx, "checkout.payment")
	span.SetAttribute("checkout.attempt", int64(attempt))
	defer span.End()

	receipt, err := m.payer.StkPush(ctx, phone, amount)

	m.mu.Lock()
	if attempt != m.attempt {
		m.mu.Unlock()
		m.logger.WarnWithContext(ctx, "Discarding stale payment result", map[string]interface{}{
			"attempt":         attempt,
			"current_attempt": m.currentAttempt(),
			"succeeded":       err == nil,
		})
		return
	}

	if err != nil {
		span.RecordError(err)
		m.state = Paying
		m.errMsg = paymentErrorMessage(err)
		snap := m.snapshotLocked()
		m.cancel = nil
		m.mu.Unlock()

		m.logger.InfoWithContext(ctx, "Payment failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err,
		})
		done <- snap
		return
	}

	m.state = Success
	m.receipt = receipt
	m.cancel = nil
	m.mu.Unlock()

	m.onPaid(ctx, receipt)

	m.logger.InfoWithContext(ctx, "Payment succeeded", map[string]interface{}{
		"attempt": attempt,
	})
	done <- m.Snapshot()
}

func (m *Machine) currentAttempt() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Reset abandons any in-flight payment and returns to a closed Viewing
// machine. The abandoned payment's result is discarded.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetLocked()
	m.open = false
}

func (m *Machine) resetLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.attempt++
	m.state = Viewing
	m.phone = ""
	m.errMsg = ""
	m.receipt = ""
}

// paymentErrorMessage is the text shown for a failed payment
func paymentErrorMessage(err error) string {
	var se *core.StoreError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "An unknown error occurred. Please try again."
}
