package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/controllers"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/services"
	"github.com/servana/servana_backend/websocket"
)

// RegisterBookingRoutes sets up all booking-related routes
func RegisterBookingRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub, stripe services.PaymentProcessor) {
	bookingController := controllers.NewBookingController(db, hub, stripe)
	settlementController := controllers.NewSettlementController(db, hub, stripe)

	// Public availability lookup: customers browse slots before signing in
	e.GET("/api/providers/:id/available-slots", bookingController.GetAvailableTimeSlots)

	// Protected booking routes
	bookings := e.Group("/api/bookings")
	bookings.Use(middleware.JWTMiddleware())

	bookings.POST("", bookingController.CreateBooking)
	bookings.GET("", bookingController.GetUserBookings)
	bookings.GET("/provider", bookingController.GetProviderBookings)
	bookings.POST("/:id/respond", bookingController.RespondToBooking)
	bookings.POST("/:id/start", bookingController.StartBooking)
	bookings.POST("/:id/cancel", bookingController.CancelBooking)
	bookings.POST("/:id/complete", settlementController.CompleteBooking)
}
