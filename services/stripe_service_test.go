package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v74"
)

func TestStripeErrorCode(t *testing.T) {
	declined := &stripe.Error{Code: stripe.ErrorCodeCardDeclined}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"direct stripe error", declined, "card_declined"},
		{"wrapped stripe error", fmt.Errorf("creating hold: %w", declined), "card_declined"},
		{"plain error", errors.New("connection refused"), ""},
		{"nil error", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripeErrorCode(tt.err); got != tt.want {
				t.Errorf("StripeErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
