package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceProvider is the business profile behind a provider account.
type ServiceProvider struct {
	ID                  primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID              primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	BusinessName        string             `json:"businessName,omitempty" bson:"businessName,omitempty"`
	Category            string             `json:"category,omitempty" bson:"category,omitempty"`
	Email               string             `json:"email,omitempty" bson:"email,omitempty"`
	Phone               string             `json:"phone,omitempty" bson:"phone,omitempty"`
	ContactPerson       string             `json:"contactPerson,omitempty" bson:"contactPerson,omitempty"`
	Status              string             `json:"status,omitempty" bson:"status,omitempty"`
	AutoConfirmBookings bool               `json:"autoConfirmBookings" bson:"autoConfirmBookings"`
	StripeAccountID     string             `json:"stripeAccountId,omitempty" bson:"stripeAccountId,omitempty"`
	// Cached mirror of the processor's connected-account flags. Display
	// only; money-movement decisions always re-read the processor.
	ChargesEnabled   bool       `json:"chargesEnabled" bson:"chargesEnabled"`
	DetailsSubmitted bool       `json:"detailsSubmitted" bson:"detailsSubmitted"`
	Requirements     []string   `json:"requirements,omitempty" bson:"requirements,omitempty"`
	LastStripeSyncAt *time.Time `json:"lastStripeSyncAt,omitempty" bson:"lastStripeSyncAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// AccountSetupComplete is the derived gate for payouts: the processor
// must both allow charges and have all onboarding details.
func (sp *ServiceProvider) AccountSetupComplete() bool {
	return sp.ChargesEnabled && sp.DetailsSubmitted
}

// AccountStatusData is the wire shape for the account-status endpoint.
type AccountStatusData struct {
	HasStripeAccount     bool     `json:"hasStripeAccount"`
	AccountSetupComplete bool     `json:"accountSetupComplete"`
	ChargesEnabled       bool     `json:"charges_enabled"`
	DetailsSubmitted     bool     `json:"details_submitted"`
	AccountID            string   `json:"accountId,omitempty"`
	Requirements         []string `json:"requirements,omitempty"`
}
