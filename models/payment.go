package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentMetadata carries the identifiers stamped onto a payment
// authorization so the booking commit can cross-validate that the hold
// was created for the same service, provider and customer.
type PaymentMetadata struct {
	ServiceID  string `json:"serviceId" bson:"serviceId"`
	ProviderID string `json:"providerId" bson:"providerId"`
	CustomerID string `json:"customerId" bson:"customerId"`
}

// PaymentIntentRecord is the local mirror of the processor's
// authorization object. The processor remains the source of truth; this
// row exists for auditing and offline lookups.
type PaymentIntentRecord struct {
	ID                    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID             primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	StripePaymentIntentID string             `json:"stripePaymentIntentId" bson:"stripePaymentIntentId"`
	Amount                float64            `json:"amount" bson:"amount"`
	Currency              string             `json:"currency" bson:"currency"`
	Status                string             `json:"status" bson:"status"`
	ClientSecret          string             `json:"clientSecret,omitempty" bson:"clientSecret,omitempty"`
	PaymentMethodTypes    []string           `json:"paymentMethodTypes,omitempty" bson:"paymentMethodTypes,omitempty"`
	Metadata              PaymentMetadata    `json:"metadata" bson:"metadata"`
	CreatedAt             time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PaymentRecord is the escrow-hold audit row written alongside a booking.
type PaymentRecord struct {
	ID                    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID             primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	StripePaymentIntentID string             `json:"stripePaymentIntentId" bson:"stripePaymentIntentId"`
	Amount                float64            `json:"amount" bson:"amount"`
	PlatformFee           float64            `json:"platformFee" bson:"platformFee"`
	Currency              string             `json:"currency" bson:"currency"`
	Type                  string             `json:"type" bson:"type"` // "escrow_hold"
	Status                PaymentStatus      `json:"status" bson:"status"`
	CreatedAt             time.Time          `json:"createdAt" bson:"createdAt"`
}

// PayoutRecord is the best-effort audit row for a provider settlement.
// Reference is the external id quoted in support conversations and
// provider statements.
type PayoutRecord struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Reference         string             `json:"reference" bson:"reference"`
	BookingID         primitive.ObjectID `json:"bookingId" bson:"bookingId"`
	ServiceProviderID primitive.ObjectID `json:"serviceProviderId" bson:"serviceProviderId"`
	Amount            float64            `json:"amount" bson:"amount"`
	Currency          string             `json:"currency" bson:"currency"`
	StripeTransferID  string             `json:"stripeTransferId" bson:"stripeTransferId"`
	SourceChargeID    string             `json:"sourceChargeId,omitempty" bson:"sourceChargeId,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}

// PaymentAuthorizationRequest model
type PaymentAuthorizationRequest struct {
	ServiceID         string `json:"serviceId" validate:"required"`
	ServiceProviderID string `json:"serviceProviderId" validate:"required"`
}

// PaymentAuthorizationData is returned to the client after a hold is created.
type PaymentAuthorizationData struct {
	PaymentIntentID string  `json:"paymentIntentId"`
	ClientSecret    string  `json:"clientSecret"`
	BaseAmount      float64 `json:"baseAmount"`
	PlatformFee     float64 `json:"platformFee"`
	TotalAmount     float64 `json:"totalAmount"`
	Currency        string  `json:"currency"`
}

// ComputePlatformFee returns the platform's cut of a base price, rounded
// to cents. Computed once at authorization time; everything downstream
// trusts the authorized split instead of recomputing it.
func ComputePlatformFee(base, percent float64) float64 {
	return math.Round(base*percent) / 100
}

// ToMinorUnits converts a major-unit amount (e.g. 110.00) into the
// integer minor units the payment processor expects (11000). Rounded once
// at the boundary so the same amount always maps to the same integer.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts processor minor units back to major units.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
