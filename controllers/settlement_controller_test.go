package controllers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/servana/servana_backend/models"
)

func TestCanSettle(t *testing.T) {
	tests := []struct {
		name    string
		booking models.Booking
		want    bool
	}{
		{
			name: "confirmed booking with escrowed funds",
			booking: models.Booking{
				Status:                models.BookingStatusConfirmed,
				PaymentStatus:         models.PaymentStatusFundsHeld,
				AmountHeldForProvider: 100,
			},
			want: true,
		},
		{
			name: "in-progress booking with escrowed funds",
			booking: models.Booking{
				Status:                models.BookingStatusInProgress,
				PaymentStatus:         models.PaymentStatusFundsHeld,
				AmountHeldForProvider: 100,
			},
			want: true,
		},
		{
			name: "already completed booking must not settle twice",
			booking: models.Booking{
				Status:                models.BookingStatusCompleted,
				PaymentStatus:         models.PaymentStatusPayoutDone,
				AmountHeldForProvider: 100,
			},
			want: false,
		},
		{
			name: "pending booking",
			booking: models.Booking{
				Status:                models.BookingStatusPending,
				PaymentStatus:         models.PaymentStatusFundsHeld,
				AmountHeldForProvider: 100,
			},
			want: false,
		},
		{
			name: "cancelled booking",
			booking: models.Booking{
				Status:                models.BookingStatusCancelled,
				PaymentStatus:         models.PaymentStatusRefunded,
				AmountHeldForProvider: 100,
			},
			want: false,
		},
		{
			name: "confirmed but funds already paid out",
			booking: models.Booking{
				Status:                models.BookingStatusConfirmed,
				PaymentStatus:         models.PaymentStatusPayoutDone,
				AmountHeldForProvider: 100,
			},
			want: false,
		},
		{
			name: "nothing held for provider",
			booking: models.Booking{
				Status:                models.BookingStatusConfirmed,
				PaymentStatus:         models.PaymentStatusFundsHeld,
				AmountHeldForProvider: 0,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := canSettle(&tt.booking)
			if got != tt.want {
				t.Errorf("canSettle() = %v (%q), want %v", got, reason, tt.want)
			}
			if !got && reason == "" {
				t.Error("a rejected settlement must carry a reason")
			}
		})
	}
}

func TestPayoutIdempotencyKeyIsStable(t *testing.T) {
	id := primitive.NewObjectID()
	first := payoutIdempotencyKey(id)
	second := payoutIdempotencyKey(id)
	if first != second {
		t.Errorf("idempotency key changed between calls: %q vs %q", first, second)
	}
	if other := payoutIdempotencyKey(primitive.NewObjectID()); other == first {
		t.Error("different bookings must not share an idempotency key")
	}
}
