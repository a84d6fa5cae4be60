// Package mpesa simulates an M-Pesa STK push: the customer's phone receives a
// PIN prompt and the request resolves after a realistic delay.
//
// Outcomes are keyed on the last nine digits of the phone number:
//
//	700000001  cancelled by the user after 3s
//	700000002  timed out after 10s
//	746079270  succeeds after 5s
//	other      rejected as not provisioned after 2s
package mpesa

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/core"
)

// Test numbers, as their last nine digits
const (
	CancelNumber  = "700000001"
	TimeoutNumber = "700000002"
	SuccessNumber = "746079270"
)

var phonePattern = regexp.MustCompile(`^(254|0)?7\d{8}$`)

// Simulator errors. Each carries the message shown to the shopper.
var (
	ErrInvalidPhoneFormat = &core.StoreError{
		Op:      "mpesa.StkPush",
		Kind:    core.KindValidation,
		Message: "Invalid phone number format. Use a valid Safaricom number.",
		Err:     core.ErrInvalidPhoneNumber,
	}
	ErrCancelledByUser = &core.StoreError{
		Op:      "mpesa.StkPush",
		Kind:    core.KindTransport,
		Message: "The transaction was cancelled by the user.",
		Err:     core.ErrPaymentCancelled,
	}
	ErrTimeout = &core.StoreError{
		Op:      "mpesa.StkPush",
		Kind:    core.KindTransport,
		Message: "The transaction timed out. Please try again.",
		Err:     core.ErrPaymentTimeout,
	}
	ErrNotProvisioned = &core.StoreError{
		Op:      "mpesa.StkPush",
		Kind:    core.KindTransport,
		Message: "This phone number is not registered for this payment simulation.",
		Err:     core.ErrNotProvisioned,
	}
)

// Delays is how long each outcome takes to resolve
type Delays struct {
	Cancel         time.Duration
	Timeout        time.Duration
	Success        time.Duration
	NotProvisioned time.Duration
}

// DefaultDelays are the timings a shopper experiences
func DefaultDelays() Delays {
	return Delays{
		Cancel:         3 * time.Second,
		Timeout:        10 * time.Second,
		Success:        5 * time.Second,
		NotProvisioned: 2 * time.Second,
	}
}

// Scaled multiplies every delay by f, e.g. 0.001 in tests
func (d Delays) Scaled(f float64) Delays {
	scale := func(v time.Duration) time.Duration { return time.Duration(float64(v) * f) }
	return Delays{
		Cancel:         scale(d.Cancel),
		Timeout:        scale(d.Timeout),
		Success:        scale(d.Success),
		NotProvisioned: scale(d.NotProvisioned),
	}
}

// Simulator resolves STK pushes from the phone number alone
type Simulator struct {
	delays    Delays
	logger    core.Logger
	telemetry core.Telemetry
}

// Option configures a Simulator
type Option func(*Simulator)

// WithDelays overrides the outcome timings
func WithDelays(d Delays) Option {
	return func(s *Simulator) { s.delays = d }
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTelemetry records spans and outcome counters
func WithTelemetry(t core.Telemetry) Option {
	return func(s *Simulator) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// NewSimulator returns a simulator with the default delays
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		delays:    DefaultDelays(),
		logger:    &core.NoOpLogger{},
		telemetry: &core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StkPush sends a payment prompt for amount to phone and waits for the outcome.
// A malformed number fails immediately. Cancelling ctx abandons the wait and
// returns ctx.Err().
func (s *Simulator) StkPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	ctx, span := s.telemetry.StartSpan(ctx, "mpesa.stk_push")
	defer span.End()

	s.logger.InfoWithContext(ctx, "Initiating STK push", map[string]interface{}{
		"phone":  maskPhone(phone),
		"amount": amount.String(),
	})

	if !phonePattern.MatchString(phone) {
		span.RecordError(ErrInvalidPhoneFormat)
		s.record("invalid_format")
		return "", ErrInvalidPhoneFormat
	}

	delay, outcome := s.outcomeFor(phone, amount)
	span.SetAttribute("mpesa.delay_ms", delay.Milliseconds())

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.WarnWithContext(ctx, "STK push abandoned", map[string]interface{}{
			"phone": maskPhone(phone),
			"error": ctx.Err(),
		})
		s.record("abandoned")
		return "", ctx.Err()
	case <-timer.C:
	}

	receipt, err := outcome()
	if err != nil {
		span.RecordError(err)
		s.logger.InfoWithContext(ctx, "STK push failed", map[string]interface{}{
			"phone": maskPhone(phone),
			"error": err,
		})
		s.record(core.KindOf(err))
		return "", err
	}

	s.logger.InfoWithContext(ctx, "STK push succeeded", map[string]interface{}{
		"phone":  maskPhone(phone),
		"amount": amount.String(),
	})
	s.record("success")
	return receipt, nil
}

func (s *Simulator) outcomeFor(phone string, amount decimal.Decimal) (time.Duration, func() (string, error)) {
	switch phone[len(phone)-9:] {
	case CancelNumber:
		return s.delays.Cancel, func() (string, error) { return "", ErrCancelledByUser }
	case TimeoutNumber:
		return s.delays.Timeout, func() (string, error) { return "", ErrTimeout }
	case SuccessNumber:
		return s.delays.Success, func() (string, error) {
			return fmt.Sprintf("Payment of %s for number %s was successful.", amount.String(), phone), nil
		}
	default:
		return s.delays.NotProvisioned, func() (string, error) { return "", ErrNotProvisioned }
	}
}

func (s *Simulator) record(outcome string) {
	s.telemetry.RecordMetric("storefront.payment.stk_push", 1, map[string]string{"outcome": outcome})
}

// maskPhone keeps only the last four digits for logs
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		if i < len(phone)-4 {
			masked[i] = '*'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
