package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/config"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/models"
)

// ServiceController manages a provider's bookable service catalog.
type ServiceController struct {
	db *mongo.Client
}

// NewServiceController creates a new service controller
func NewServiceController(db *mongo.Client) *ServiceController {
	return &ServiceController{db: db}
}

// ServiceRequest carries a new or updated catalog entry.
type ServiceRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"durationMinutes" validate:"required,gt=0"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"required,len=3"`
}

// CreateService adds a service to the authenticated provider's catalog.
func (c *ServiceController) CreateService(ctx echo.Context) error {
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
			Message: "Only service providers can manage services",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
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

	var request ServiceRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Name, duration, price, and currency are required",
		})
	}

	now := time.Now()
	service := models.Service{
		ID:                primitive.NewObjectID(),
		ServiceProviderID: serviceProvider.ID,
		Name:              request.Name,
		Description:       request.Description,
		DurationMinutes:   request.DurationMinutes,
		Price:             request.Price,
		Currency:          request.Currency,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err := config.GetCollection(c.db, "services").InsertOne(context.Background(), service); err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create service",
		})
	}

	return ctx.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Service created successfully",
		Data:    service,
	})
}

// ListProviderServices returns a provider's active catalog. Public:
// customers browse it before booking.
func (c *ServiceController) ListProviderServices(ctx echo.Context) error {
	serviceProviderID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service provider ID",
		})
	}

	cursor, err := config.GetCollection(c.db, "services").Find(context.Background(), bson.M{
		"serviceProviderId": serviceProviderID,
		"isActive":          true,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error retrieving services",
		})
	}
	defer cursor.Close(context.Background())

	var serviceList []models.Service
	if err := cursor.All(context.Background(), &serviceList); err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error decoding services",
		})
	}
	if serviceList == nil {
		serviceList = []models.Service{}
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Services retrieved successfully",
		Data:    serviceList,
	})
}

// DeactivateService soft-deletes a catalog entry. Existing bookings
// against it are unaffected.
func (c *ServiceController) DeactivateService(ctx echo.Context) error {
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

	serviceID, err := primitive.ObjectIDFromHex(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
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

	result, err := config.GetCollection(c.db, "services").UpdateOne(context.Background(),
		bson.M{"_id": serviceID, "serviceProviderId": serviceProvider.ID},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to deactivate service",
		})
	}
	if result.MatchedCount == 0 {
		return ctx.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Service not found",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Service deactivated successfully",
	})
}
