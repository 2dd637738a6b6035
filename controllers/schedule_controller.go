package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/servana/servana_backend/config"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/models"
)

var weekdayNames = map[string]bool{
	"Sunday": true, "Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true,
}

// ScheduleController manages the weekly schedule and blackout ranges
// the availability checks read.
type ScheduleController struct {
	db *mongo.Client
}

// NewScheduleController creates a new schedule controller
func NewScheduleController(db *mongo.Client) *ScheduleController {
	return &ScheduleController{db: db}
}

// ScheduleUpdateRequest carries a full weekly schedule replacement.
type ScheduleUpdateRequest struct {
	Weekly models.WeeklySchedule `json:"weekly" validate:"required"`
}

// BlackoutRequest declares a new unavailable date range.
type BlackoutRequest struct {
	StartDate string `json:"startDate" validate:"required"` // "2006-01-02"
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

// UpsertSchedule replaces the provider's weekly schedule in one shot.
// Partial updates are not supported; the client always sends all seven
// days.
func (c *ScheduleController) UpsertSchedule(ctx echo.Context) error {
	serviceProvider, errResp := c.requireProvider(ctx)
	if errResp != nil {
		return errResp
	}

	var request ScheduleUpdateRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Weekly schedule is required",
		})
	}
	for day, window := range request.Weekly {
		if !weekdayNames[day] {
			return ctx.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Unknown weekday: " + day,
			})
		}
		if window.Enabled && (window.Start == "" || window.End == "" || window.Start >= window.End) {
			return ctx.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid working hours for " + day,
			})
		}
	}

	now := time.Now()
	_, err := config.GetCollection(c.db, "schedules").UpdateOne(context.Background(),
		bson.M{"serviceProviderId": serviceProvider.ID},
		bson.M{
			"$set": bson.M{
				"weekly":    request.Weekly,
				"updatedAt": now,
			},
			"$setOnInsert": bson.M{
				"serviceProviderId": serviceProvider.ID,
				"createdAt":         now,
			},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save schedule",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Schedule saved successfully",
	})
}

// GetSchedule returns the authenticated provider's weekly schedule.
func (c *ScheduleController) GetSchedule(ctx echo.Context) error {
	serviceProvider, errResp := c.requireProvider(ctx)
	if errResp != nil {
		return errResp
	}

	var schedule models.ProviderSchedule
	err := config.GetCollection(c.db, "schedules").FindOne(context.Background(), bson.M{
		"serviceProviderId": serviceProvider.ID,
	}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No schedule configured yet",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error retrieving schedule",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Schedule retrieved successfully",
		Data:    schedule,
	})
}

// AddBlackout records a date range during which the provider takes no
// bookings. Existing bookings in the range are left alone; the provider
// cancels those individually.
func (c *ScheduleController) AddBlackout(ctx echo.Context) error {
	serviceProvider, errResp := c.requireProvider(ctx)
	if errResp != nil {
		return errResp
	}

	var request BlackoutRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Start and end dates are required",
		})
	}

	start, err := time.Parse("2006-01-02", request.StartDate)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid start date. Use YYYY-MM-DD",
		})
	}
	end, err := time.Parse("2006-01-02", request.EndDate)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid end date. Use YYYY-MM-DD",
		})
	}
	if end.Before(start) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "End date must not be before start date",
		})
	}

	blackout := models.BlackoutRange{
		ID:                primitive.NewObjectID(),
		ServiceProviderID: serviceProvider.ID,
		StartDate:         time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC),
		Reason:            request.Reason,
		CreatedAt:         time.Now(),
	}
	if _, err := config.GetCollection(c.db, "blackoutRanges").InsertOne(context.Background(), blackout); err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save blackout range",
		})
	}

	return ctx.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Blackout range added successfully",
		Data:    blackout,
	})
}

// RemoveBlackout deletes a blackout range the provider declared.
func (c *ScheduleController) RemoveBlackout(ctx echo.Context) error {
	serviceProvider, errResp := c.requireProvider(ctx)
	if errResp != nil {
		return errResp
	}

	blackoutID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid blackout ID",
		})
	}

	result, err := config.GetCollection(c.db, "blackoutRanges").DeleteOne(context.Background(), bson.M{
		"_id":               blackoutID,
		"serviceProviderId": serviceProvider.ID,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete blackout range",
		})
	}
	if result.DeletedCount == 0 {
		return ctx.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Blackout range not found",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Blackout range removed successfully",
	})
}

// requireProvider resolves the authenticated provider, writing the
// error response itself on failure.
func (c *ScheduleController) requireProvider(ctx echo.Context) (*models.ServiceProvider, error) {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return nil, ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	if claims.UserType != "serviceProvider" {
		return nil, ctx.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only service providers can manage schedules",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var serviceProvider models.ServiceProvider
	err = config.GetCollection(c.db, "serviceProviders").FindOne(context.Background(), bson.M{"userId": userID}).Decode(&serviceProvider)
	if err != nil {
		return nil, ctx.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Service provider profile not found",
		})
	}
	return &serviceProvider, nil
}
