package services

import (
	"testing"
	"time"

	"github.com/servana/servana_backend/models"
)

func weekday9to5() models.WeeklySchedule {
	weekly := models.WeeklySchedule{}
	for _, d := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"} {
		weekly[d] = models.DaySchedule{Enabled: true, Start: "09:00", End: "17:00"}
	}
	return weekly
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return date
}

func TestCheckSlot_DisabledDay(t *testing.T) {
	weekly := weekday9to5()
	// 2025-12-06 is a Saturday, not in the schedule at all
	check, err := CheckSlot(weekly, nil, nil, mustDate(t, "2025-12-06"), "10:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK || check.Reason != ReasonProviderUnavailableDay {
		t.Errorf("got %+v, want provider_unavailable_day", check)
	}

	weekly["Saturday"] = models.DaySchedule{Enabled: false, Start: "09:00", End: "17:00"}
	check, err = CheckSlot(weekly, nil, nil, mustDate(t, "2025-12-06"), "10:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK || check.Reason != ReasonProviderUnavailableDay {
		t.Errorf("disabled day: got %+v, want provider_unavailable_day", check)
	}
}

func TestCheckSlot_BlackoutWins(t *testing.T) {
	blackouts := []models.BlackoutRange{{
		StartDate: mustDate(t, "2025-12-24"),
		EndDate:   mustDate(t, "2025-12-26"),
	}}
	// 2025-12-25 is a Thursday, inside working hours and conflict-free,
	// but the blackout must still reject it.
	check, err := CheckSlot(weekday9to5(), blackouts, nil, mustDate(t, "2025-12-25"), "10:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK || check.Reason != ReasonBlackoutDate {
		t.Errorf("got %+v, want blackout_date", check)
	}

	// Day after the range is bookable again
	check, err = CheckSlot(weekday9to5(), blackouts, nil, mustDate(t, "2025-12-29"), "10:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK {
		t.Errorf("2025-12-29 should be bookable, got %+v", check)
	}
}

func TestCheckSlot_ConflictAndAdjacency(t *testing.T) {
	existing := []models.Booking{{
		StartTime: "10:00",
		EndTime:   "11:00",
		Status:    models.BookingStatusConfirmed,
	}}
	date := mustDate(t, "2025-12-01") // a Monday

	cases := []struct {
		start      string
		wantOK     bool
		wantReason SlotRejectReason
		wantEnd    string
	}{
		{"10:30", false, ReasonSlotConflict, ""},
		{"09:30", false, ReasonSlotConflict, ""}, // 09:30-10:30 overlaps front
		{"11:00", true, "", "12:00"},             // back-to-back is allowed
		{"09:00", true, "", "10:00"},             // ends exactly at existing start
	}
	for _, tc := range cases {
		check, err := CheckSlot(weekday9to5(), nil, existing, date, tc.start, 60)
		if err != nil {
			t.Fatal(err)
		}
		if check.OK != tc.wantOK || check.Reason != tc.wantReason {
			t.Errorf("start %s: got %+v, want ok=%v reason=%s", tc.start, check, tc.wantOK, tc.wantReason)
		}
		if tc.wantOK && check.EndTime != tc.wantEnd {
			t.Errorf("start %s: end time %s, want %s", tc.start, check.EndTime, tc.wantEnd)
		}
	}
}

func TestCheckSlot_OutsideWorkingHours(t *testing.T) {
	date := mustDate(t, "2025-12-01")

	// Free slot, but the window sticks out past close
	check, err := CheckSlot(weekday9to5(), nil, nil, date, "16:30", 60)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK || check.Reason != ReasonOutsideWorkingHours {
		t.Errorf("16:30+60min: got %+v, want outside_working_hours", check)
	}

	check, err = CheckSlot(weekday9to5(), nil, nil, date, "08:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK || check.Reason != ReasonOutsideWorkingHours {
		t.Errorf("08:00: got %+v, want outside_working_hours", check)
	}

	// Last slot that exactly fits the window is fine
	check, err = CheckSlot(weekday9to5(), nil, nil, date, "16:00", 60)
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK || check.EndTime != "17:00" {
		t.Errorf("16:00: got %+v, want ok with end 17:00", check)
	}
}

func TestCheckSlot_BadInput(t *testing.T) {
	date := mustDate(t, "2025-12-01")
	if _, err := CheckSlot(weekday9to5(), nil, nil, date, "25:99", 60); err == nil {
		t.Error("expected error for malformed start time")
	}
	if _, err := CheckSlot(weekday9to5(), nil, nil, date, "10:00", 0); err == nil {
		t.Error("expected error for zero duration")
	}
}

func TestAvailableSlots(t *testing.T) {
	existing := []models.Booking{{
		StartTime: "10:00",
		EndTime:   "11:00",
		Status:    models.BookingStatusConfirmed,
	}}
	slots, err := AvailableSlots(weekday9to5(), nil, existing, mustDate(t, "2025-12-01"), 60)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"09:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	if len(slots) != len(want) {
		t.Fatalf("got %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, slots[i], want[i])
		}
	}

	// Disabled day yields nothing
	slots, err = AvailableSlots(weekday9to5(), nil, nil, mustDate(t, "2025-12-07"), 60)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("Sunday should have no slots, got %v", slots)
	}
}

func TestSlotDuration(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
		wantErr    bool
	}{
		{"10:00", "11:00", 60, false},
		{"09:30", "09:45", 15, false},
		{"10:00", "10:00", 0, true},
		{"11:00", "10:00", 0, true},
		{"bad", "11:00", 0, true},
	}
	for _, tt := range tests {
		got, err := SlotDuration(tt.start, tt.end)
		if (err != nil) != tt.wantErr {
			t.Errorf("SlotDuration(%s, %s) error = %v, wantErr %v", tt.start, tt.end, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SlotDuration(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

// Two pending requests for overlapping windows can both commit, because
// the commit-time check only sees confirmed and in-progress rows. Once
// the first is accepted, re-validating the second against the day's
// confirmed rows must reject it.
func TestAcceptingSecondOverlappingPendingIsRejected(t *testing.T) {
	date := mustDate(t, "2025-12-01")

	// Commit time: the 10:00-11:00 request is still pending, so the
	// day's confirmed rows are empty and 10:30-11:30 passes.
	check, err := CheckSlot(weekday9to5(), nil, nil, date, "10:30", 60)
	if err != nil {
		t.Fatal(err)
	}
	if !check.OK {
		t.Fatalf("10:30 should pass while the overlapping request is only pending, got reason %s", check.Reason)
	}

	// Acceptance time: the first request has been confirmed. Re-running
	// the check for the second one must now report a conflict.
	confirmed := []models.Booking{{
		StartTime: "10:00",
		EndTime:   "11:00",
		Status:    models.BookingStatusConfirmed,
	}}
	duration, err := SlotDuration("10:30", "11:30")
	if err != nil {
		t.Fatal(err)
	}
	check, err = CheckSlot(weekday9to5(), nil, confirmed, date, "10:30", duration)
	if err != nil {
		t.Fatal(err)
	}
	if check.OK {
		t.Fatal("accepting 10:30-11:30 over a confirmed 10:00-11:00 must be rejected")
	}
	if check.Reason != ReasonSlotConflict {
		t.Errorf("reason = %s, want %s", check.Reason, ReasonSlotConflict)
	}
}
