package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/controllers"
	"github.com/servana/servana_backend/middleware"
)

// RegisterProviderRoutes sets up schedule and notification routes
func RegisterProviderRoutes(e *echo.Echo, db *mongo.Client) {
	scheduleController := controllers.NewScheduleController(db)
	notificationController := controllers.NewNotificationController(db)
	serviceController := controllers.NewServiceController(db)

	// Public catalog browsing
	e.GET("/api/providers/:id/services", serviceController.ListProviderServices)

	catalog := e.Group("/api/services")
	catalog.Use(middleware.JWTMiddleware())
	catalog.Use(middleware.RequireUserType("serviceProvider"))

	catalog.POST("", serviceController.CreateService)
	catalog.DELETE("/:id", serviceController.DeactivateService)

	schedule := e.Group("/api/schedule")
	schedule.Use(middleware.JWTMiddleware())
	schedule.Use(middleware.RequireUserType("serviceProvider"))

	schedule.GET("", scheduleController.GetSchedule)
	schedule.PUT("", scheduleController.UpsertSchedule)
	schedule.POST("/blackouts", scheduleController.AddBlackout)
	schedule.DELETE("/blackouts/:id", scheduleController.RemoveBlackout)

	notifications := e.Group("/api/notifications")
	notifications.Use(middleware.JWTMiddleware())

	notifications.GET("", notificationController.GetNotifications)
	notifications.POST("/:id/read", notificationController.MarkNotificationRead)
}
