package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BookingStatus is the lifecycle state of a booking. Transitions are
// monotonic: once a booking leaves "pending" it never returns.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusDeclined   BookingStatus = "declined"
	BookingStatusExpired    BookingStatus = "expired"
)

// PaymentStatus tracks where the customer's money is relative to the booking.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFundsHeld  PaymentStatus = "funds_held_in_escrow"
	PaymentStatusPayoutDone PaymentStatus = "payout_completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// bookingTransitions is the closed set of allowed status moves. Anything
// not listed here is rejected at the boundary instead of trusting callers.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusDeclined, BookingStatusCancelled, BookingStatusExpired},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
	BookingStatusDeclined:   {},
	BookingStatusExpired:    {},
}

// CanTransitionTo reports whether moving from s to next is a legal
// booking status transition.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s marks the end of a booking's lifecycle.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// Booking model. Bookings are never physically deleted; status is the
// terminal marker.
type Booking struct {
	ID                    primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID                primitive.ObjectID `json:"userId" bson:"userId"`
	ServiceProviderID     primitive.ObjectID `json:"serviceProviderId" bson:"serviceProviderId"`
	ServiceID             primitive.ObjectID `json:"serviceId" bson:"serviceId"`
	BookingDate           time.Time          `json:"bookingDate" bson:"bookingDate"`
	StartTime             string             `json:"startTime" bson:"startTime"` // "15:04"
	EndTime               string             `json:"endTime" bson:"endTime"`
	Status                BookingStatus      `json:"status" bson:"status"`
	PaymentStatus         PaymentStatus      `json:"paymentStatus" bson:"paymentStatus"`
	BaseAmount            float64            `json:"baseAmount" bson:"baseAmount"`
	PlatformFee           float64            `json:"platformFee" bson:"platformFee"`
	TotalAmount           float64            `json:"totalAmount" bson:"totalAmount"`
	CapturedAmount        float64            `json:"capturedAmount" bson:"capturedAmount"`
	AmountHeldForProvider float64            `json:"amountHeldForProvider" bson:"amountHeldForProvider"`
	PlatformFeeHeld       float64            `json:"platformFeeHeld" bson:"platformFeeHeld"`
	Currency              string             `json:"currency" bson:"currency"`
	PaymentIntentID       string             `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	ProviderTransferID    string             `json:"providerTransferId,omitempty" bson:"providerTransferId,omitempty"`
	AutoConfirmed         bool               `json:"autoConfirmed" bson:"autoConfirmed"`
	ResponseDeadline      *time.Time         `json:"responseDeadline,omitempty" bson:"responseDeadline,omitempty"`
	CompletedAt           *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CustomerNotes         string             `json:"customerNotes,omitempty" bson:"customerNotes,omitempty"`
	ServiceAddress        string             `json:"serviceAddress,omitempty" bson:"serviceAddress,omitempty"`
	CreatedAt             time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ValidateAmounts enforces the money invariants a booking must hold at
// creation: the total is exactly base plus fee, and the escrow split
// never exceeds what was captured.
func (b *Booking) ValidateAmounts() error {
	if diff := b.TotalAmount - (b.BaseAmount + b.PlatformFee); diff > 0.001 || diff < -0.001 {
		return fmt.Errorf("total amount %.2f does not equal base %.2f + fee %.2f",
			b.TotalAmount, b.BaseAmount, b.PlatformFee)
	}
	if b.AmountHeldForProvider+b.PlatformFeeHeld > b.CapturedAmount+0.001 {
		return fmt.Errorf("held amounts %.2f exceed captured amount %.2f",
			b.AmountHeldForProvider+b.PlatformFeeHeld, b.CapturedAmount)
	}
	return nil
}

// BookingRequest model
type BookingRequest struct {
	ServiceID         string `json:"serviceId" validate:"required"`
	ServiceProviderID string `json:"serviceProviderId" validate:"required"`
	BookingDate       string `json:"bookingDate" validate:"required"` // "2006-01-02"
	StartTime         string `json:"startTime" validate:"required"`   // "15:04"
	CustomerNotes     string `json:"customerNotes,omitempty"`
	ServiceAddress    string `json:"serviceAddress,omitempty"`
	PaymentIntentID   string `json:"paymentIntentId" validate:"required"`
}

// BookingStatusUpdateRequest model for the provider accept/decline flow
type BookingStatusUpdateRequest struct {
	Status           string `json:"status" validate:"required"` // "accepted" or "declined"
	ProviderResponse string `json:"providerResponse,omitempty"`
}

// BookingResponse model
type BookingResponse struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Data    *Booking `json:"data,omitempty"`
}

// BookingsResponse model for multiple bookings
type BookingsResponse struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	Data    []Booking `json:"data,omitempty"`
}
