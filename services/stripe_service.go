package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/account"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/transfer"

	"github.com/servana/servana_backend/models"
)

// AuthorizationParams describes the payment hold to create: the full
// amount (base + platform fee) in minor units, plus the identifiers
// stamped into metadata for commit-time cross-validation.
type AuthorizationParams struct {
	AmountMinor int64
	Currency    string
	Metadata    models.PaymentMetadata
	BaseAmount  float64
	PlatformFee float64
}

// TransferParams describes a provider payout. SourceChargeID links the
// transfer to the original charge so it does not depend on the
// platform's liquid balance; IdempotencyKey dedupes retries.
type TransferParams struct {
	AmountMinor    int64
	Currency       string
	Destination    string
	SourceChargeID string
	IdempotencyKey string
	BookingID      string
}

// PaymentProcessor is the slice of the payment processor the booking and
// settlement flows need. Handlers depend on this interface so tests can
// substitute a stub.
type PaymentProcessor interface {
	CreateAuthorization(ctx context.Context, params AuthorizationParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	Capture(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelAuthorization(ctx context.Context, id string) error
	ResolveChargeID(ctx context.Context, paymentIntentID string) (string, error)
	CreateTransfer(ctx context.Context, params TransferParams) (*stripe.Transfer, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}

// StripeService handles interactions with the Stripe API
type StripeService struct{}

// NewStripeService creates a new Stripe service instance
func NewStripeService() *StripeService {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		log.Printf("WARNING: STRIPE_SECRET_KEY is not set")
		log.Printf("Please set this environment variable for the Stripe payment service to work")
	} else {
		log.Printf("Stripe Service Configuration:")
		log.Printf("  Secret key: [CONFIGURED]")
	}
	stripe.Key = key

	return &StripeService{}
}

// CreateAuthorization creates a manual-capture payment intent so funds
// are reserved on the customer's payment method without being moved yet.
func (s *StripeService) CreateAuthorization(ctx context.Context, params AuthorizationParams) (*stripe.PaymentIntent, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(params.AmountMinor),
		Currency:           stripe.String(params.Currency),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	piParams.Context = ctx
	piParams.AddMetadata("service_id", params.Metadata.ServiceID)
	piParams.AddMetadata("provider_id", params.Metadata.ProviderID)
	piParams.AddMetadata("customer_id", params.Metadata.CustomerID)
	piParams.AddMetadata("base_amount", fmt.Sprintf("%.2f", params.BaseAmount))
	piParams.AddMetadata("platform_fee", fmt.Sprintf("%.2f", params.PlatformFee))

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment authorization: %w", err)
	}
	return pi, nil
}

// GetPaymentIntent fetches the processor's live view of an authorization.
func (s *StripeService) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", id, err)
	}
	return pi, nil
}

// Capture settles a manual-capture hold, moving the authorized funds
// into the platform balance. Until this runs the customer's money is
// only reserved; uncaptured holds expire at the processor.
func (s *StripeService) Capture(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := paymentintent.Capture(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to capture payment intent %s: %w", id, err)
	}
	return pi, nil
}

// CancelAuthorization releases an uncaptured hold.
func (s *StripeService) CancelAuthorization(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	_, err := paymentintent.Cancel(id, params)
	if err != nil {
		return fmt.Errorf("failed to cancel payment intent %s: %w", id, err)
	}
	return nil
}

// ResolveChargeID resolves an authorization to its underlying completed
// charge so a transfer can name it as its funding source.
func (s *StripeService) ResolveChargeID(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("failed to fetch payment intent %s: %w", paymentIntentID, err)
	}
	if pi.LatestCharge == nil || pi.LatestCharge.ID == "" {
		return "", fmt.Errorf("payment intent %s has no charge to fund a transfer", paymentIntentID)
	}
	return pi.LatestCharge.ID, nil
}

// CreateTransfer moves the provider's share to their connected account.
// When SourceChargeID is set the transfer draws on that charge instead of
// the platform balance; without it the call may fail on insufficient
// platform funds, which the caller logs as a higher-risk attempt.
func (s *StripeService) CreateTransfer(ctx context.Context, params TransferParams) (*stripe.Transfer, error) {
	tParams := &stripe.TransferParams{
		Amount:      stripe.Int64(params.AmountMinor),
		Currency:    stripe.String(params.Currency),
		Destination: stripe.String(params.Destination),
	}
	tParams.Context = ctx
	if params.SourceChargeID != "" {
		tParams.SourceTransaction = stripe.String(params.SourceChargeID)
	}
	if params.IdempotencyKey != "" {
		tParams.SetIdempotencyKey(params.IdempotencyKey)
	}
	if params.BookingID != "" {
		tParams.AddMetadata("booking_id", params.BookingID)
	}

	tr, err := transfer.New(tParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	return tr, nil
}

// GetAccount fetches the live connected-account record. Callers gating
// money movement must use this rather than any cached copy.
func (s *StripeService) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account %s: %w", accountID, err)
	}
	return acct, nil
}

// StripeErrorCode extracts the processor's structured error code, if any,
// so handlers can surface it alongside the message.
func StripeErrorCode(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return string(stripeErr.Code)
	}
	return ""
}
