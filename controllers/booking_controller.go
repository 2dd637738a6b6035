package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v74"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/config"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/models"
	"github.com/servana/servana_backend/services"
	"github.com/servana/servana_backend/utils"
	"github.com/servana/servana_backend/websocket"
)

// responseDeadlineHours is how long a provider has to accept or decline
// a booking that was not auto-confirmed.
const responseDeadlineHours = 24

// authorizedIntentStatuses are the processor statuses under which funds
// are actually reserved. Anything else means the hold is not usable.
var authorizedIntentStatuses = map[string]bool{
	"succeeded":          true,
	"requires_capture":   true,
	"partially_captured": true,
}

// BookingController handles booking-related API endpoints
type BookingController struct {
	db     *mongo.Client
	hub    *websocket.Hub
	stripe services.PaymentProcessor
}

// NewBookingController creates a new booking controller
func NewBookingController(db *mongo.Client, hub *websocket.Hub, stripe services.PaymentProcessor) *BookingController {
	return &BookingController{db: db, hub: hub, stripe: stripe}
}

// matchesAuthorizationMetadata verifies the authorization was created
// for this exact service/provider/customer triple. A hold minted for a
// different booking must never fund this one.
func matchesAuthorizationMetadata(md map[string]string, serviceID, providerID, customerID string) bool {
	return md["service_id"] == serviceID &&
		md["provider_id"] == providerID &&
		md["customer_id"] == customerID
}

// captureEscrow settles an authorized hold so the funds actually sit in
// the platform balance before any booking row exists. An intent that
// already succeeded (a retried commit) passes through unchanged.
func captureEscrow(ctx context.Context, processor services.PaymentProcessor, pi *stripe.PaymentIntent) (*stripe.PaymentIntent, error) {
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		return pi, nil
	}
	return processor.Capture(ctx, pi.ID)
}

// initialBookingState derives the starting status from the provider's
// auto-confirm preference; a manual provider gets a response deadline.
func initialBookingState(autoConfirm bool, now time.Time) (models.BookingStatus, *time.Time) {
	if autoConfirm {
		return models.BookingStatusConfirmed, nil
	}
	deadline := now.Add(responseDeadlineHours * time.Hour)
	return models.BookingStatusPending, &deadline
}

// CreateBooking commits a booking against a confirmed payment hold. The
// slot is re-validated server-side here even though the client already
// checked it: two customers can race for the same window, and the
// client's view may be stale. All precondition failures return before
// any write occurs.
func (c *BookingController) CreateBooking(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var user models.User
	err = config.GetCollection(c.db, "users").FindOne(context.Background(), bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "User not found",
		})
	}

	var request models.BookingRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required booking fields",
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(request.ServiceID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}
	serviceProviderID, err := primitive.ObjectIDFromHex(request.ServiceProviderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service provider ID",
		})
	}

	date, err := time.Parse("2006-01-02", request.BookingDate)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid booking date. Use YYYY-MM-DD",
		})
	}
	bookingDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	// Precondition chain, fail-fast, in order: service → schedule →
	// slot → payment metadata → payment status.

	var service models.Service
	err = config.GetCollection(c.db, "services").FindOne(context.Background(), bson.M{
		"_id":               serviceID,
		"serviceProviderId": serviceProviderID,
	}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Service not found for this provider",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding service",
		})
	}
	if !service.IsActive {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Service is not active",
		})
	}

	var schedule models.ProviderSchedule
	err = config.GetCollection(c.db, "schedules").FindOne(context.Background(), bson.M{
		"serviceProviderId": serviceProviderID,
	}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Provider schedule not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding provider schedule",
		})
	}

	blackouts, existing, err := c.loadDayContext(context.Background(), serviceProviderID, bookingDate)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error checking booking availability",
		})
	}

	check, err := services.CheckSlot(schedule.Weekly, blackouts, existing, bookingDate, request.StartTime, service.DurationMinutes)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid start time. Use HH:MM",
		})
	}
	if !check.OK {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Slot unavailable: " + string(check.Reason),
		})
	}

	// The authorization is the source of truth for all amounts. Fetch
	// the processor's live view; never trust the client's numbers.
	pi, err := c.stripe.GetPaymentIntent(ctx.Request().Context(), request.PaymentIntentID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment authorization not found",
		})
	}
	if !matchesAuthorizationMetadata(pi.Metadata, request.ServiceID, request.ServiceProviderID, claims.UserID) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment authorization does not match this booking",
		})
	}
	if !authorizedIntentStatuses[string(pi.Status)] {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment is not authorized: " + string(pi.Status),
		})
	}

	// Capture before any write. A failed capture means no funds are in
	// escrow, so the booking must not exist; the client retries with a
	// fresh or re-confirmed authorization.
	pi, err = captureEscrow(ctx.Request().Context(), c.stripe, pi)
	if err != nil {
		if code := services.StripeErrorCode(err); code != "" {
			return ctx.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Payment capture failed: " + code,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Payment capture failed. No booking was created",
		})
	}

	totalAmount := models.FromMinorUnits(pi.Amount)
	baseAmount, err1 := strconv.ParseFloat(pi.Metadata["base_amount"], 64)
	platformFee, err2 := strconv.ParseFloat(pi.Metadata["platform_fee"], 64)
	if err1 != nil || err2 != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment authorization is missing amount metadata",
		})
	}

	var serviceProvider models.ServiceProvider
	err = config.GetCollection(c.db, "serviceProviders").FindOne(context.Background(), bson.M{
		"_id": serviceProviderID,
	}).Decode(&serviceProvider)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Service provider not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding service provider",
		})
	}

	now := time.Now()
	status, deadline := initialBookingState(serviceProvider.AutoConfirmBookings, now)

	booking := models.Booking{
		ID:                    primitive.NewObjectID(),
		UserID:                user.ID,
		ServiceProviderID:     serviceProviderID,
		ServiceID:             serviceID,
		BookingDate:           bookingDate,
		StartTime:             request.StartTime,
		EndTime:               check.EndTime,
		Status:                status,
		PaymentStatus:         models.PaymentStatusFundsHeld,
		BaseAmount:            baseAmount,
		PlatformFee:           platformFee,
		TotalAmount:           totalAmount,
		CapturedAmount:        models.FromMinorUnits(pi.AmountReceived),
		AmountHeldForProvider: baseAmount,
		PlatformFeeHeld:       platformFee,
		Currency:              string(pi.Currency),
		PaymentIntentID:       pi.ID,
		AutoConfirmed:         serviceProvider.AutoConfirmBookings,
		ResponseDeadline:      deadline,
		CustomerNotes:         request.CustomerNotes,
		ServiceAddress:        request.ServiceAddress,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := booking.ValidateAmounts(); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payment authorization amounts are inconsistent",
		})
	}

	// Primary write. The unique slot index closes the race left open by
	// the read-then-validate check above: the second insert for the same
	// provider/date/start loses with a duplicate-key error.
	_, err = config.GetCollection(c.db, "bookings").InsertOne(context.Background(), booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ctx.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Slot unavailable: slot_conflict",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create booking",
		})
	}

	// Secondary writes are best-effort: the authorization has already
	// moved real money, so losing an audit row must not roll back the
	// booking. Failures are logged with the booking id for the
	// reconciliation job to pick up.
	intentRecord := models.PaymentIntentRecord{
		ID:                    primitive.NewObjectID(),
		BookingID:             booking.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                totalAmount,
		Currency:              string(pi.Currency),
		Status:                string(pi.Status),
		ClientSecret:          pi.ClientSecret,
		PaymentMethodTypes:    pi.PaymentMethodTypes,
		Metadata: models.PaymentMetadata{
			ServiceID:  request.ServiceID,
			ProviderID: request.ServiceProviderID,
			CustomerID: claims.UserID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := config.GetCollection(c.db, "paymentIntents").InsertOne(context.Background(), intentRecord); err != nil {
		log.Printf("Failed to record payment intent for booking %s: %v", booking.ID.Hex(), err)
	}

	paymentRecord := models.PaymentRecord{
		ID:                    primitive.NewObjectID(),
		BookingID:             booking.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                totalAmount,
		PlatformFee:           platformFee,
		Currency:              string(pi.Currency),
		Type:                  "escrow_hold",
		Status:                models.PaymentStatusFundsHeld,
		CreatedAt:             now,
	}
	if _, err := config.GetCollection(c.db, "payments").InsertOne(context.Background(), paymentRecord); err != nil {
		log.Printf("Failed to record payment for booking %s: %v", booking.ID.Hex(), err)
	}

	notificationData := map[string]interface{}{
		"bookingId":   booking.ID.Hex(),
		"serviceName": service.Name,
		"bookingDate": bookingDate.Format("2006-01-02"),
		"startTime":   booking.StartTime,
		"endTime":     booking.EndTime,
	}
	if err := c.hub.SendToUser(serviceProvider.UserID, websocket.Notification{
		Type:    websocket.NotificationTypeBookingRequest,
		Message: "You have a new booking request from " + user.FullName,
		Data:    booking,
	}); err != nil {
		log.Printf("Failed to send WebSocket notification to service provider: %v", err)
	}
	if err := utils.SaveNotification(c.db, serviceProvider.UserID,
		"New Booking Request",
		"You have a new booking request from "+user.FullName,
		websocket.NotificationTypeBookingRequest, notificationData); err != nil {
		log.Printf("Failed to save in-app notification for service provider: %v", err)
	}

	return ctx.JSON(http.StatusCreated, models.BookingResponse{
		Status:  http.StatusCreated,
		Message: "Booking created successfully",
		Data:    &booking,
	})
}

// loadDayContext fetches the blackout ranges covering a date and the
// day's conflicting bookings for a provider.
func (c *BookingController) loadDayContext(ctx context.Context, serviceProviderID primitive.ObjectID, bookingDate time.Time) ([]models.BlackoutRange, []models.Booking, error) {
	blackoutCursor, err := config.GetCollection(c.db, "blackoutRanges").Find(ctx, bson.M{
		"serviceProviderId": serviceProviderID,
		"startDate":         bson.M{"$lte": bookingDate},
		"endDate":           bson.M{"$gte": bookingDate},
	})
	if err != nil {
		return nil, nil, err
	}
	defer blackoutCursor.Close(ctx)

	var blackouts []models.BlackoutRange
	if err := blackoutCursor.All(ctx, &blackouts); err != nil {
		return nil, nil, err
	}

	bookingCursor, err := config.GetCollection(c.db, "bookings").Find(ctx, bson.M{
		"serviceProviderId": serviceProviderID,
		"bookingDate":       bookingDate,
		"status":            bson.M{"$in": []models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusInProgress}},
	})
	if err != nil {
		return nil, nil, err
	}
	defer bookingCursor.Close(ctx)

	var existing []models.Booking
	if err := bookingCursor.All(ctx, &existing); err != nil {
		return nil, nil, err
	}

	return blackouts, existing, nil
}

// GetAvailableTimeSlots returns bookable start times for a provider's
// service on a specific date.
func (c *BookingController) GetAvailableTimeSlots(ctx echo.Context) error {
	providerID := ctx.Param("id")
	dateStr := ctx.QueryParam("date")
	serviceIDStr := ctx.QueryParam("serviceId")

	serviceProviderID, err := primitive.ObjectIDFromHex(providerID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service provider ID",
		})
	}
	serviceID, err := primitive.ObjectIDFromHex(serviceIDStr)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid date format. Use YYYY-MM-DD",
		})
	}
	bookingDate := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var service models.Service
	err = config.GetCollection(c.db, "services").FindOne(context.Background(), bson.M{
		"_id":               serviceID,
		"serviceProviderId": serviceProviderID,
	}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Service not found for this provider",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding service",
		})
	}

	var schedule models.ProviderSchedule
	err = config.GetCollection(c.db, "schedules").FindOne(context.Background(), bson.M{
		"serviceProviderId": serviceProviderID,
	}).Decode(&schedule)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Provider schedule not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding provider schedule",
		})
	}

	blackouts, existing, err := c.loadDayContext(context.Background(), serviceProviderID, bookingDate)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error retrieving bookings",
		})
	}

	slots, err := services.AvailableSlots(schedule.Weekly, blackouts, existing, bookingDate, service.DurationMinutes)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error computing available slots",
		})
	}
	if slots == nil {
		slots = []string{}
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Available time slots retrieved successfully",
		Data:    slots,
	})
}

// GetUserBookings retrieves all bookings for the authenticated customer
func (c *BookingController) GetUserBookings(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	cursor, err := config.GetCollection(c.db, "bookings").Find(context.Background(), bson.M{"userId": userID})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error retrieving bookings",
		})
	}
	defer cursor.Close(context.Background())

	var bookings []models.Booking
	if err := cursor.All(context.Background(), &bookings); err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error decoding bookings",
		})
	}

	return ctx.JSON(http.StatusOK, models.BookingsResponse{
		Status:  http.StatusOK,
		Message: "Bookings retrieved successfully",
		Data:    bookings,
	})
}

// GetProviderBookings retrieves all bookings for the authenticated provider
func (c *BookingController) GetProviderBookings(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	if claims.UserType != "serviceProvider" {
		return ctx.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only service providers can access their bookings",
		})
	}

	serviceProvider, errResp := c.providerForClaims(ctx, claims)
	if errResp != nil {
		return errResp
	}

	statusFilter := ctx.QueryParam("status")
	filter := bson.M{"serviceProviderId": serviceProvider.ID}
	if statusFilter != "" {
		filter["status"] = statusFilter
	}

	cursor, err := config.GetCollection(c.db, "bookings").Find(context.Background(), filter)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error retrieving bookings",
		})
	}
	defer cursor.Close(context.Background())

	var bookings []models.Booking
	if err := cursor.All(context.Background(), &bookings); err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error decoding bookings",
		})
	}

	// Enrich bookings with customer information
	var enrichedBookings []map[string]interface{}
	for _, booking := range bookings {
		var bookingUser models.User
		err := config.GetCollection(c.db, "users").FindOne(context.Background(), bson.M{"_id": booking.UserID}).Decode(&bookingUser)
		if err != nil {
			log.Printf("Error fetching user info for booking %s: %v", booking.ID.Hex(), err)
		}

		enrichedBookings = append(enrichedBookings, map[string]interface{}{
			"booking": booking,
			"user": map[string]interface{}{
				"id":         bookingUser.ID,
				"fullName":   bookingUser.FullName,
				"email":      bookingUser.Email,
				"phone":      bookingUser.Phone,
				"profilePic": bookingUser.ProfilePic,
			},
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bookings retrieved successfully",
		Data:    enrichedBookings,
	})
}

// RespondToBooking lets a provider accept or decline a pending booking
func (c *BookingController) RespondToBooking(ctx echo.Context) error {
	bookingID := ctx.Param("id")
	if bookingID == "" {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Booking ID is required",
		})
	}

	var req models.BookingStatusUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request format",
		})
	}
	if req.Status != "accepted" && req.Status != "declined" {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Status must be either 'accepted' or 'declined'",
		})
	}

	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}
	if claims.UserType != "serviceProvider" {
		return ctx.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only service providers can accept or decline bookings",
		})
	}

	serviceProvider, errResp := c.providerForClaims(ctx, claims)
	if errResp != nil {
		return errResp
	}

	objID, err := primitive.ObjectIDFromHex(bookingID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid booking ID",
		})
	}

	bookingCollection := config.GetCollection(c.db, "bookings")
	var booking models.Booking
	err = bookingCollection.FindOne(context.Background(), bson.M{
		"_id":               objID,
		"serviceProviderId": serviceProvider.ID,
	}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Booking not found or you do not have permission to manage this booking",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to find booking",
		})
	}

	next := models.BookingStatusConfirmed
	if req.Status == "declined" {
		next = models.BookingStatusDeclined
	}
	if !booking.Status.CanTransitionTo(next) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cannot update status: booking is already " + string(booking.Status),
		})
	}
	if booking.ResponseDeadline != nil && time.Now().After(*booking.ResponseDeadline) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Booking request has expired",
		})
	}

	// The commit-time check only saw confirmed and in-progress rows, so
	// two overlapping pending requests can coexist. Re-validate the slot
	// before this acceptance would make both of them confirmed.
	if next == models.BookingStatusConfirmed {
		var schedule models.ProviderSchedule
		err = config.GetCollection(c.db, "schedules").FindOne(context.Background(), bson.M{
			"serviceProviderId": serviceProvider.ID,
		}).Decode(&schedule)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Error finding provider schedule",
			})
		}
		blackouts, existing, err := c.loadDayContext(context.Background(), serviceProvider.ID, booking.BookingDate)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Error checking booking availability",
			})
		}
		duration, err := services.SlotDuration(booking.StartTime, booking.EndTime)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Error checking booking availability",
			})
		}
		check, err := services.CheckSlot(schedule.Weekly, blackouts, existing, booking.BookingDate, booking.StartTime, duration)
		if err != nil {
			return ctx.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Error checking booking availability",
			})
		}
		if !check.OK {
			return ctx.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Cannot accept: " + string(check.Reason),
			})
		}
	}

	update := bson.M{
		"$set": bson.M{
			"status":    next,
			"updatedAt": time.Now(),
		},
	}
	if req.ProviderResponse != "" {
		update["$set"].(bson.M)["providerResponse"] = req.ProviderResponse
	}

	_, err = bookingCollection.UpdateOne(context.Background(), bson.M{"_id": objID}, update)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update booking status",
		})
	}

	err = bookingCollection.FindOne(context.Background(), bson.M{"_id": objID}).Decode(&booking)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve updated booking",
		})
	}

	notification := websocket.Notification{
		Type:    websocket.NotificationTypeBookingResponse,
		Message: "Your booking has been " + req.Status,
		Data:    booking,
	}
	if err := utils.SaveNotification(c.db, booking.UserID, "Booking Update", notification.Message, notification.Type, booking); err != nil {
		log.Printf("Failed to save notification: %v", err)
	}
	if err := c.hub.SendToUser(booking.UserID, notification); err != nil {
		log.Printf("Failed to send WebSocket notification to user: %v", err)
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Booking " + req.Status + " successfully",
		Data:    booking,
	})
}

// StartBooking marks a confirmed booking as underway. Only the assigned
// provider can start it.
func (c *BookingController) StartBooking(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	if claims.UserType != "serviceProvider" {
		return ctx.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only service providers can start bookings",
		})
	}

	serviceProvider, errResp := c.providerForClaims(ctx, claims)
	if errResp != nil {
		return errResp
	}

	objID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid booking ID",
		})
	}

	bookingCollection := config.GetCollection(c.db, "bookings")
	var booking models.Booking
	err = bookingCollection.FindOne(context.Background(), bson.M{
		"_id":               objID,
		"serviceProviderId": serviceProvider.ID,
	}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Booking not found or you do not have permission to manage this booking",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to find booking",
		})
	}

	if !booking.Status.CanTransitionTo(models.BookingStatusInProgress) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cannot start: booking is " + string(booking.Status),
		})
	}

	_, err = bookingCollection.UpdateOne(context.Background(), bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"status":    models.BookingStatusInProgress,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update booking status",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Booking started",
	})
}

// CancelBooking cancels a booking. Customers may cancel their own
// bookings; providers may cancel bookings assigned to them. If the hold
// is still uncaptured on the processor side it gets released.
func (c *BookingController) CancelBooking(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	objID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid booking ID",
		})
	}

	bookingCollection := config.GetCollection(c.db, "bookings")
	var booking models.Booking
	err = bookingCollection.FindOne(context.Background(), bson.M{"_id": objID}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ctx.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Booking not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error finding booking",
		})
	}

	userID, _ := primitive.ObjectIDFromHex(claims.UserID)
	isCustomer := booking.UserID == userID
	isProvider := false
	if claims.UserType == "serviceProvider" {
		var sp models.ServiceProvider
		if err := config.GetCollection(c.db, "serviceProviders").FindOne(context.Background(), bson.M{"userId": userID}).Decode(&sp); err == nil {
			isProvider = sp.ID == booking.ServiceProviderID
		}
	}
	if !isCustomer && !isProvider {
		return ctx.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You don't have permission to cancel this booking",
		})
	}

	if !booking.Status.CanTransitionTo(models.BookingStatusCancelled) {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Cannot cancel: booking is already " + string(booking.Status),
		})
	}

	update := bson.M{"$set": bson.M{
		"status":    models.BookingStatusCancelled,
		"updatedAt": time.Now(),
	}}

	// Release the hold while it is still only a reservation. The wider
	// refund path for captured funds lives outside this core.
	if booking.PaymentStatus == models.PaymentStatusFundsHeld && booking.PaymentIntentID != "" {
		if err := c.stripe.CancelAuthorization(ctx.Request().Context(), booking.PaymentIntentID); err != nil {
			log.Printf("Failed to release payment hold for booking %s: %v", booking.ID.Hex(), err)
		} else {
			update["$set"].(bson.M)["paymentStatus"] = models.PaymentStatusRefunded
		}
	}

	_, err = bookingCollection.UpdateOne(context.Background(), bson.M{"_id": objID}, update)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error cancelling booking",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Booking cancelled successfully",
	})
}

// providerForClaims resolves the serviceProvider document owned by the
// authenticated user, writing the error response itself on failure.
func (c *BookingController) providerForClaims(ctx echo.Context, claims *middleware.JwtCustomClaims) (*models.ServiceProvider, error) {
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

// ExpirePendingBookings marks pending bookings whose response deadline
// has passed as expired and releases their payment holds. Run
// periodically from main.
func ExpirePendingBookings(db *mongo.Client, hub *websocket.Hub, stripe services.PaymentProcessor) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bookingCollection := config.GetCollection(db, "bookings")
	cursor, err := bookingCollection.Find(ctx, bson.M{
		"status":           models.BookingStatusPending,
		"responseDeadline": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		log.Printf("Failed to query expired bookings: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var expired []models.Booking
	if err := cursor.All(ctx, &expired); err != nil {
		log.Printf("Failed to decode expired bookings: %v", err)
		return
	}

	for _, booking := range expired {
		update := bson.M{"$set": bson.M{
			"status":    models.BookingStatusExpired,
			"updatedAt": time.Now(),
		}}
		if booking.PaymentStatus == models.PaymentStatusFundsHeld && booking.PaymentIntentID != "" {
			if err := stripe.CancelAuthorization(ctx, booking.PaymentIntentID); err != nil {
				log.Printf("Failed to release payment hold for expired booking %s: %v", booking.ID.Hex(), err)
			} else {
				update["$set"].(bson.M)["paymentStatus"] = models.PaymentStatusRefunded
			}
		}
		if _, err := bookingCollection.UpdateOne(ctx, bson.M{"_id": booking.ID}, update); err != nil {
			log.Printf("Failed to expire booking %s: %v", booking.ID.Hex(), err)
			continue
		}
		if err := hub.SendToUser(booking.UserID, websocket.Notification{
			Type:    websocket.NotificationTypeBookingExpired,
			Message: "Your booking request expired before the provider responded",
			Data:    map[string]interface{}{"bookingId": booking.ID.Hex()},
		}); err != nil {
			log.Printf("Failed to notify user of expired booking: %v", err)
		}
	}
}
