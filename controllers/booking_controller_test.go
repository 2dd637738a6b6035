package controllers

import (
	"testing"
	"time"

	"github.com/servana/servana_backend/models"
)

func TestMatchesAuthorizationMetadata(t *testing.T) {
	md := map[string]string{
		"service_id":  "svc1",
		"provider_id": "prov1",
		"customer_id": "cust1",
	}

	tests := []struct {
		name       string
		serviceID  string
		providerID string
		customerID string
		want       bool
	}{
		{"exact match", "svc1", "prov1", "cust1", true},
		{"wrong service", "svc2", "prov1", "cust1", false},
		{"wrong provider", "svc1", "prov2", "cust1", false},
		{"wrong customer", "svc1", "prov1", "cust2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesAuthorizationMetadata(md, tt.serviceID, tt.providerID, tt.customerID); got != tt.want {
				t.Errorf("matchesAuthorizationMetadata() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesAuthorizationMetadataMissingKeys(t *testing.T) {
	if matchesAuthorizationMetadata(map[string]string{}, "svc1", "prov1", "cust1") {
		t.Error("empty metadata must never match")
	}
}

func TestAuthorizedIntentStatuses(t *testing.T) {
	for _, status := range []string{"succeeded", "requires_capture", "partially_captured"} {
		if !authorizedIntentStatuses[status] {
			t.Errorf("status %q should count as authorized", status)
		}
	}
	for _, status := range []string{"requires_payment_method", "requires_confirmation", "processing", "canceled", ""} {
		if authorizedIntentStatuses[status] {
			t.Errorf("status %q must not count as authorized", status)
		}
	}
}

func TestInitialBookingState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	status, deadline := initialBookingState(true, now)
	if status != models.BookingStatusConfirmed {
		t.Errorf("auto-confirm status = %s, want confirmed", status)
	}
	if deadline != nil {
		t.Error("auto-confirmed booking must not carry a response deadline")
	}

	status, deadline = initialBookingState(false, now)
	if status != models.BookingStatusPending {
		t.Errorf("manual status = %s, want pending", status)
	}
	if deadline == nil {
		t.Fatal("manual booking must carry a response deadline")
	}
	if want := now.Add(responseDeadlineHours * time.Hour); !deadline.Equal(want) {
		t.Errorf("deadline = %v, want %v", deadline, want)
	}
}
