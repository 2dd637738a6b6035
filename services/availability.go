package services

import (
	"fmt"
	"time"

	"github.com/servana/servana_backend/models"
)

// SlotRejectReason identifies why a requested booking window was refused.
type SlotRejectReason string

const (
	ReasonProviderUnavailableDay SlotRejectReason = "provider_unavailable_day"
	ReasonBlackoutDate           SlotRejectReason = "blackout_date"
	ReasonSlotConflict           SlotRejectReason = "slot_conflict"
	ReasonOutsideWorkingHours    SlotRejectReason = "outside_working_hours"
)

// SlotCheck is the outcome of validating a requested time window.
type SlotCheck struct {
	OK      bool
	Reason  SlotRejectReason
	EndTime string // computed as start + service duration, "15:04"
}

// CheckSlot decides whether a provider can be booked for the requested
// window. The caller supplies the provider's weekly schedule, blackout
// ranges and the day's existing confirmed/in-progress bookings; this
// function is read-only so it can be re-run at commit time against fresh
// rows to narrow the window between two racing customers.
func CheckSlot(weekly models.WeeklySchedule, blackouts []models.BlackoutRange, existing []models.Booking, date time.Time, startTime string, durationMinutes int) (SlotCheck, error) {
	day, ok := weekly[date.Weekday().String()]
	if !ok || !day.Enabled {
		return SlotCheck{Reason: ReasonProviderUnavailableDay}, nil
	}

	for _, r := range blackouts {
		if r.Contains(date) {
			return SlotCheck{Reason: ReasonBlackoutDate}, nil
		}
	}

	start, err := parseClock(startTime)
	if err != nil {
		return SlotCheck{}, fmt.Errorf("invalid start time %q: %w", startTime, err)
	}
	if durationMinutes <= 0 {
		return SlotCheck{}, fmt.Errorf("invalid service duration %d", durationMinutes)
	}
	end := start + durationMinutes

	// Half-open interval overlap: [start,end) vs [b.start,b.end)
	for _, b := range existing {
		bStart, err := parseClock(b.StartTime)
		if err != nil {
			continue
		}
		bEnd, err := parseClock(b.EndTime)
		if err != nil {
			continue
		}
		if start < bEnd && end > bStart {
			return SlotCheck{Reason: ReasonSlotConflict}, nil
		}
	}

	dayStart, err := parseClock(day.Start)
	if err != nil {
		return SlotCheck{}, fmt.Errorf("invalid schedule start %q: %w", day.Start, err)
	}
	dayEnd, err := parseClock(day.End)
	if err != nil {
		return SlotCheck{}, fmt.Errorf("invalid schedule end %q: %w", day.End, err)
	}
	if start < dayStart || end > dayEnd {
		return SlotCheck{Reason: ReasonOutsideWorkingHours}, nil
	}

	return SlotCheck{OK: true, EndTime: formatClock(end)}, nil
}

// AvailableSlots enumerates the bookable start times for one day,
// stepping through the weekday window in service-duration increments and
// dropping anything CheckSlot rejects.
func AvailableSlots(weekly models.WeeklySchedule, blackouts []models.BlackoutRange, existing []models.Booking, date time.Time, durationMinutes int) ([]string, error) {
	day, ok := weekly[date.Weekday().String()]
	if !ok || !day.Enabled {
		return nil, nil
	}
	dayStart, err := parseClock(day.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule start %q: %w", day.Start, err)
	}
	dayEnd, err := parseClock(day.End)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule end %q: %w", day.End, err)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("invalid service duration %d", durationMinutes)
	}

	var slots []string
	for m := dayStart; m+durationMinutes <= dayEnd; m += durationMinutes {
		check, err := CheckSlot(weekly, blackouts, existing, date, formatClock(m), durationMinutes)
		if err != nil {
			return nil, err
		}
		if check.OK {
			slots = append(slots, formatClock(m))
		}
	}
	return slots, nil
}

// SlotDuration returns the length in minutes of a start/end window, so
// a stored booking's window can be re-validated through CheckSlot.
func SlotDuration(startTime, endTime string) (int, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", startTime, err)
	}
	end, err := parseClock(endTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", endTime, err)
	}
	if end <= start {
		return 0, fmt.Errorf("window %s-%s has no duration", startTime, endTime)
	}
	return end - start, nil
}

// parseClock converts "15:04" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// formatClock converts minutes since midnight back to "15:04".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
