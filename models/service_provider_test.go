package models

import "testing"

func TestAccountSetupComplete(t *testing.T) {
	tests := []struct {
		name             string
		chargesEnabled   bool
		detailsSubmitted bool
		want             bool
	}{
		{"fully onboarded", true, true, true},
		{"charges disabled", false, true, false},
		{"details outstanding", true, false, false},
		{"fresh account", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := ServiceProvider{ChargesEnabled: tt.chargesEnabled, DetailsSubmitted: tt.detailsSubmitted}
			if got := sp.AccountSetupComplete(); got != tt.want {
				t.Errorf("AccountSetupComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
