package mpesa

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Stub is a payer with a fixed outcome that records every call
type Stub struct {
	mu      sync.Mutex
	receipt string
	err     error
	calls   []StubCall
	release chan struct{}
}

// StubCall is one recorded StkPush invocation
type StubCall struct {
	Phone  string
	Amount decimal.Decimal
}

// Always returns a payer that succeeds with receipt
func Always(receipt string) *Stub {
	return &Stub{receipt: receipt}
}

// AlwaysFail returns a payer that fails with err
func AlwaysFail(err error) *Stub {
	return &Stub{err: err}
}

// Gated makes StkPush block until Release is called or ctx ends
func (s *Stub) Gated() *Stub {
	s.release = make(chan struct{})
	return s
}

// Release unblocks every pending and future StkPush of a gated stub
func (s *Stub) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.release != nil {
		select {
		case <-s.release:
		default:
			close(s.release)
		}
	}
}

// StkPush records the call and returns the configured outcome
func (s *Stub) StkPush(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, StubCall{Phone: phone, Amount: amount})
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.receipt, nil
}

// Calls returns the recorded invocations
func (s *Stub) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubCall(nil), s.calls...)
}
