package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
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

// SettlementController moves escrowed funds to providers once a booking
// is completed.
type SettlementController struct {
	db     *mongo.Client
	hub    *websocket.Hub
	stripe services.PaymentProcessor
}

// NewSettlementController creates a new settlement controller
func NewSettlementController(db *mongo.Client, hub *websocket.Hub, stripe services.PaymentProcessor) *SettlementController {
	return &SettlementController{db: db, hub: hub, stripe: stripe}
}

// canSettle reports whether a booking is in a state where paying out the
// provider is legal. A booking that already completed must not settle a
// second time.
func canSettle(booking *models.Booking) (bool, string) {
	switch booking.Status {
	case models.BookingStatusConfirmed, models.BookingStatusInProgress:
	case models.BookingStatusCompleted:
		return false, "Booking has already been settled"
	default:
		return false, "Cannot settle: booking is " + string(booking.Status)
	}
	if booking.PaymentStatus != models.PaymentStatusFundsHeld && booking.PaymentStatus != models.PaymentStatusPaid {
		return false, "Cannot settle: payment status is " + string(booking.PaymentStatus)
	}
	if booking.AmountHeldForProvider <= 0 {
		return false, "No funds held for provider on this booking"
	}
	return true, ""
}

// payoutIdempotencyKey is derived from the booking id so a retried
// completion request replays the same transfer at the processor instead
// of creating a second one.
func payoutIdempotencyKey(bookingID primitive.ObjectID) string {
	return "booking-payout-" + bookingID.Hex()
}

// CompleteBooking marks a booking completed and transfers the held
// provider share to the provider's connected account. The transfer is
// the primary effect: if it fails, the booking is left untouched so the
// request can be safely retried.
func (c *SettlementController) CompleteBooking(ctx echo.Context) error {
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
			Message: "Only service providers can complete bookings",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	objID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid booking ID",
		})
	}

	var serviceProvider models.ServiceProvider
	err = config.GetCollection(c.db, "serviceProviders").FindOne(context.Background(), bson.M{"userId": userID}).Decode(&serviceProvider)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Service provider profile not found",
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
			Message: "Error finding booking",
		})
	}

	if ok, reason := canSettle(&booking); !ok {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: reason,
		})
	}

	if serviceProvider.StripeAccountID == "" {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Provider has no connected payout account. Complete account setup first",
		})
	}

	// Gate on the processor's live view of the account, not the cached
	// copy: a disabled account would make the transfer fail anyway, and
	// the live check gives the provider an actionable error.
	account, err := c.stripe.GetAccount(ctx.Request().Context(), serviceProvider.StripeAccountID)
	if err != nil {
		log.Printf("Failed to fetch connected account %s: %v", serviceProvider.StripeAccountID, err)
		return ctx.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Unable to verify payout account status. Try again later",
		})
	}
	if !account.ChargesEnabled {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Payout account is not fully enabled. Complete account setup first",
		})
	}

	// Link the transfer to the charge that funded the escrow so it
	// draws from those funds instead of the platform balance. A resolve
	// failure is tolerated: the transfer still goes through, just
	// unsourced, which is worth a log line.
	sourceChargeID, err := c.stripe.ResolveChargeID(ctx.Request().Context(), booking.PaymentIntentID)
	if err != nil {
		log.Printf("Could not resolve source charge for booking %s: %v", booking.ID.Hex(), err)
		sourceChargeID = ""
	}

	transfer, err := c.stripe.CreateTransfer(ctx.Request().Context(), services.TransferParams{
		AmountMinor:    models.ToMinorUnits(booking.AmountHeldForProvider),
		Currency:       booking.Currency,
		Destination:    serviceProvider.StripeAccountID,
		SourceChargeID: sourceChargeID,
		IdempotencyKey: payoutIdempotencyKey(booking.ID),
		BookingID:      booking.ID.Hex(),
	})
	if err != nil {
		if code := services.StripeErrorCode(err); code != "" {
			return ctx.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Payout failed: " + code,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Payout failed. Booking was not completed; retry later",
		})
	}

	// The money has moved. From here every failure is recoverable by
	// reconciliation, so the booking update and audit row are
	// best-effort and the response stays a success.
	now := time.Now()
	_, err = bookingCollection.UpdateOne(context.Background(), bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"status":             models.BookingStatusCompleted,
			"paymentStatus":      models.PaymentStatusPayoutDone,
			"providerTransferId": transfer.ID,
			"completedAt":        now,
			"updatedAt":          now,
		},
	})
	if err != nil {
		log.Printf("Transfer %s succeeded but booking %s update failed: %v", transfer.ID, booking.ID.Hex(), err)
	}

	payoutRecorded := true
	payout := models.PayoutRecord{
		ID:                primitive.NewObjectID(),
		Reference:         uuid.NewString(),
		BookingID:         booking.ID,
		ServiceProviderID: serviceProvider.ID,
		Amount:            booking.AmountHeldForProvider,
		Currency:          booking.Currency,
		StripeTransferID:  transfer.ID,
		SourceChargeID:    sourceChargeID,
		CreatedAt:         now,
	}
	if _, err := config.GetCollection(c.db, "payouts").InsertOne(context.Background(), payout); err != nil {
		log.Printf("Failed to record payout for booking %s: %v", booking.ID.Hex(), err)
		payoutRecorded = false
	}

	notification := websocket.Notification{
		Type:    websocket.NotificationTypeBookingSettled,
		Message: "Your booking has been completed and the provider has been paid",
		Data: map[string]interface{}{
			"bookingId":  booking.ID.Hex(),
			"transferId": transfer.ID,
		},
	}
	if err := c.hub.SendToUser(booking.UserID, notification); err != nil {
		log.Printf("Failed to send WebSocket notification to user: %v", err)
	}
	if err := utils.SaveNotification(c.db, booking.UserID, "Booking Completed", notification.Message, notification.Type, notification.Data); err != nil {
		log.Printf("Failed to save in-app notification: %v", err)
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Booking completed and provider paid",
		Data: map[string]interface{}{
			"bookingId":      booking.ID.Hex(),
			"transferId":     transfer.ID,
			"amount":         booking.AmountHeldForProvider,
			"payoutRecorded": payoutRecorded,
		},
	})
}
