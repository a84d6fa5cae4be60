package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "message wins",
			err:  &StoreError{Op: "checkout.Pay", Message: "Please enter a valid Safaricom phone number (e.g., 254712345678).", Err: ErrInvalidPhoneNumber},
			want: "Please enter a valid Safaricom phone number (e.g., 254712345678).",
		},
		{
			name: "op and id",
			err:  &StoreError{Op: "redis.get", ID: "abc:cart", Err: ErrStorageUnavailable},
			want: "redis.get [abc:cart]: storage unavailable",
		},
		{
			name: "op only",
			err:  &StoreError{Op: "docgen.Generate", Err: ErrInvalidRepositoryURL},
			want: "docgen.Generate: invalid repository URL",
		},
		{
			name: "kind only",
			err:  &StoreError{Kind: KindState},
			want: "state error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoreError_Unwrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewStoreError("cart.Add", KindValidation, ErrInvalidQuantity))

	if !errors.Is(err, ErrInvalidQuantity) {
		t.Error("errors.Is should reach the sentinel through StoreError")
	}
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "cart.Add" {
		t.Errorf("errors.As failed, got %+v", se)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"phone", ErrInvalidPhoneNumber, KindValidation},
		{"wrapped email", fmt.Errorf("newsletter: %w", ErrInvalidEmail), KindValidation},
		{"validation store error", ValidationError("x", "bad", nil), KindValidation},
		{"cancelled", ErrPaymentCancelled, KindTransport},
		{"ai down", ErrAIUnavailable, KindTransport},
		{"storage", ErrStorageUnavailable, KindStorage},
		{"quota", ErrQuotaExceeded, KindStorage},
		{"in flight", ErrPaymentInFlight, KindState},
		{"send in flight", ErrSendInFlight, KindState},
		{"not found", ErrJobNotFound, KindNotFound},
		{"config", ErrMissingConfiguration, KindConfig},
		{"other", errors.New("boom"), KindUnknown},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.kind)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("x: %w", ErrPaymentTimeout)) {
		t.Error("payment timeout should be retryable")
	}
	if IsRetryable(ErrPaymentCancelled) {
		t.Error("a user cancellation is not retryable")
	}
	if IsRetryable(ErrInvalidPhoneNumber) {
		t.Error("validation errors are not retryable")
	}
}
