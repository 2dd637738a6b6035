package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DaySchedule is one weekday's open/close window.
type DaySchedule struct {
	Enabled bool   `json:"enabled" bson:"enabled"`
	Start   string `json:"start" bson:"start"` // "09:00"
	End     string `json:"end" bson:"end"`     // "17:00"
}

// WeeklySchedule maps weekday names ("Monday", ...) to their windows.
type WeeklySchedule map[string]DaySchedule

// ProviderSchedule is the provider's recurring weekly availability. It is
// read-only from the booking core; provider-facing screens own the edits.
type ProviderSchedule struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ServiceProviderID primitive.ObjectID `json:"serviceProviderId" bson:"serviceProviderId"`
	Weekly            WeeklySchedule     `json:"weekly" bson:"weekly"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// BlackoutRange is a provider-declared date range during which they are
// unavailable regardless of the weekly schedule. Both ends inclusive.
type BlackoutRange struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ServiceProviderID primitive.ObjectID `json:"serviceProviderId" bson:"serviceProviderId"`
	StartDate         time.Time          `json:"startDate" bson:"startDate"`
	EndDate           time.Time          `json:"endDate" bson:"endDate"`
	Reason            string             `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}

// Contains reports whether the given date falls inside the blackout
// range, comparing calendar days only.
func (r BlackoutRange) Contains(date time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(r.StartDate.Year(), r.StartDate.Month(), r.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(r.EndDate.Year(), r.EndDate.Month(), r.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}
