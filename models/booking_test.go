package models

import "testing"

func TestBookingStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{"pending to confirmed", BookingStatusPending, BookingStatusConfirmed, true},
		{"pending to declined", BookingStatusPending, BookingStatusDeclined, true},
		{"pending to cancelled", BookingStatusPending, BookingStatusCancelled, true},
		{"pending to expired", BookingStatusPending, BookingStatusExpired, true},
		{"pending cannot skip to completed", BookingStatusPending, BookingStatusCompleted, false},
		{"confirmed to in_progress", BookingStatusConfirmed, BookingStatusInProgress, true},
		{"confirmed to completed", BookingStatusConfirmed, BookingStatusCompleted, true},
		{"confirmed to cancelled", BookingStatusConfirmed, BookingStatusCancelled, true},
		{"confirmed cannot return to pending", BookingStatusConfirmed, BookingStatusPending, false},
		{"confirmed cannot be declined", BookingStatusConfirmed, BookingStatusDeclined, false},
		{"in_progress to completed", BookingStatusInProgress, BookingStatusCompleted, true},
		{"completed is terminal", BookingStatusCompleted, BookingStatusCancelled, false},
		{"cancelled is terminal", BookingStatusCancelled, BookingStatusConfirmed, false},
		{"declined is terminal", BookingStatusDeclined, BookingStatusConfirmed, false},
		{"expired is terminal", BookingStatusExpired, BookingStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNoStatusTransitionsBackToPending(t *testing.T) {
	all := []BookingStatus{
		BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusDeclined,
		BookingStatusExpired,
	}
	for _, from := range all {
		if from.CanTransitionTo(BookingStatusPending) {
			t.Errorf("transition %s -> pending must not be allowed", from)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []BookingStatus{BookingStatusCompleted, BookingStatusCancelled, BookingStatusDeclined, BookingStatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestValidateAmounts(t *testing.T) {
	tests := []struct {
		name    string
		booking Booking
		wantErr bool
	}{
		{
			name: "consistent escrow split",
			booking: Booking{
				BaseAmount: 100, PlatformFee: 10, TotalAmount: 110,
				CapturedAmount: 110, AmountHeldForProvider: 100, PlatformFeeHeld: 10,
			},
			wantErr: false,
		},
		{
			name: "total does not match base plus fee",
			booking: Booking{
				BaseAmount: 100, PlatformFee: 10, TotalAmount: 115,
				CapturedAmount: 115, AmountHeldForProvider: 100, PlatformFeeHeld: 10,
			},
			wantErr: true,
		},
		{
			name: "held exceeds captured",
			booking: Booking{
				BaseAmount: 100, PlatformFee: 10, TotalAmount: 110,
				CapturedAmount: 50, AmountHeldForProvider: 100, PlatformFeeHeld: 10,
			},
			wantErr: true,
		},
		{
			name: "cent rounding within tolerance",
			booking: Booking{
				BaseAmount: 33.33, PlatformFee: 3.33, TotalAmount: 36.66,
				CapturedAmount: 36.66, AmountHeldForProvider: 33.33, PlatformFeeHeld: 3.33,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.booking.ValidateAmounts()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAmounts() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMinorUnitConversion(t *testing.T) {
	tests := []struct {
		amount float64
		minor  int64
	}{
		{110.00, 11000},
		{0.01, 1},
		{99.99, 9999},
		{10.10, 1010},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ToMinorUnits(tt.amount); got != tt.minor {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", tt.amount, got, tt.minor)
		}
		if got := FromMinorUnits(tt.minor); got != tt.amount {
			t.Errorf("FromMinorUnits(%d) = %v, want %v", tt.minor, got, tt.amount)
		}
	}
}

func TestComputePlatformFee(t *testing.T) {
	tests := []struct {
		base    float64
		percent float64
		want    float64
	}{
		{100, 10, 10},
		{49.99, 10, 5},    // 4.999 rounds to 5.00
		{33.33, 15, 5},    // 4.9995 rounds to 5.00
		{10, 12.5, 1.25},
		{0, 10, 0},
	}
	for _, tt := range tests {
		if got := ComputePlatformFee(tt.base, tt.percent); got != tt.want {
			t.Errorf("ComputePlatformFee(%v, %v) = %v, want %v", tt.base, tt.percent, got, tt.want)
		}
	}
}
