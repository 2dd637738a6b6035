package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v74"

	"github.com/servana/servana_backend/services"
)

// stubProcessor records calls so tests can assert which processor
// operations a flow performed.
type stubProcessor struct {
	captured   []string
	captureOut *stripe.PaymentIntent
	captureErr error
}

var _ services.PaymentProcessor = (*stubProcessor)(nil)

func (s *stubProcessor) CreateAuthorization(ctx context.Context, params services.AuthorizationParams) (*stripe.PaymentIntent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProcessor) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProcessor) Capture(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	s.captured = append(s.captured, id)
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return s.captureOut, nil
}

func (s *stubProcessor) CancelAuthorization(ctx context.Context, id string) error {
	return nil
}

func (s *stubProcessor) ResolveChargeID(ctx context.Context, paymentIntentID string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubProcessor) CreateTransfer(ctx context.Context, params services.TransferParams) (*stripe.Transfer, error) {
	return nil, errors.New("not implemented")
}

func (s *stubProcessor) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	return nil, errors.New("not implemented")
}

func TestCaptureEscrowCapturesAuthorizedHold(t *testing.T) {
	processor := &stubProcessor{
		captureOut: &stripe.PaymentIntent{
			ID:             "pi_1",
			Status:         stripe.PaymentIntentStatusSucceeded,
			Amount:         11000,
			AmountReceived: 11000,
		},
	}
	hold := &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusRequiresCapture, Amount: 11000}

	got, err := captureEscrow(context.Background(), processor, hold)
	if err != nil {
		t.Fatalf("captureEscrow() error = %v", err)
	}
	if len(processor.captured) != 1 || processor.captured[0] != "pi_1" {
		t.Errorf("captured calls = %v, want exactly one for pi_1", processor.captured)
	}
	if got.Status != stripe.PaymentIntentStatusSucceeded {
		t.Errorf("post-capture status = %s, want succeeded", got.Status)
	}
	if got.AmountReceived != 11000 {
		t.Errorf("AmountReceived = %d, want 11000", got.AmountReceived)
	}
}

func TestCaptureEscrowSkipsAlreadyCapturedIntent(t *testing.T) {
	processor := &stubProcessor{}
	settled := &stripe.PaymentIntent{
		ID:             "pi_2",
		Status:         stripe.PaymentIntentStatusSucceeded,
		Amount:         5000,
		AmountReceived: 5000,
	}

	got, err := captureEscrow(context.Background(), processor, settled)
	if err != nil {
		t.Fatalf("captureEscrow() error = %v", err)
	}
	if len(processor.captured) != 0 {
		t.Errorf("captured calls = %v, want none for an already-settled intent", processor.captured)
	}
	if got != settled {
		t.Error("an already-settled intent must pass through unchanged")
	}
}

func TestCaptureEscrowSurfacesCaptureFailure(t *testing.T) {
	processor := &stubProcessor{
		captureErr: &stripe.Error{Code: stripe.ErrorCodeExpiredCard},
	}
	hold := &stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusRequiresCapture}

	_, err := captureEscrow(context.Background(), processor, hold)
	if err == nil {
		t.Fatal("captureEscrow() must fail when the processor rejects the capture")
	}
	if code := services.StripeErrorCode(err); code != "expired_card" {
		t.Errorf("StripeErrorCode() = %q, want expired_card", code)
	}
}
