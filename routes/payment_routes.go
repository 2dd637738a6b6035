package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/controllers"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/services"
)

// RegisterPaymentRoutes sets up payment and payout account routes
func RegisterPaymentRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client, stripe services.PaymentProcessor) {
	paymentController := controllers.NewPaymentController(db, stripe)
	accountController := controllers.NewStripeAccountController(db, redisClient, stripe)

	payments := e.Group("/api/payments")
	payments.Use(middleware.JWTMiddleware())

	payments.POST("/authorize", paymentController.CreatePaymentAuthorization)

	account := e.Group("/api/stripe-account")
	account.Use(middleware.JWTMiddleware())
	account.Use(middleware.RequireUserType("serviceProvider"))

	account.GET("/status", accountController.GetAccountStatus)
	account.POST("/status/refresh", accountController.RefreshAccountStatus)
}
