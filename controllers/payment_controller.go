package controllers

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/config"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/models"
	"github.com/servana/servana_backend/services"
)

// PaymentController handles payment authorization endpoints
type PaymentController struct {
	db     *mongo.Client
	stripe services.PaymentProcessor
}

// NewPaymentController creates a new payment controller
func NewPaymentController(db *mongo.Client, stripe services.PaymentProcessor) *PaymentController {
	return &PaymentController{db: db, stripe: stripe}
}

// platformFeePercent reads the platform's fee percentage from the
// environment, defaulting to 10%.
func platformFeePercent() float64 {
	if s := os.Getenv("PLATFORM_FEE_PERCENT"); s != "" {
		if pct, err := strconv.ParseFloat(s, 64); err == nil && pct >= 0 {
			return pct
		}
	}
	return 10
}

// CreatePaymentAuthorization creates a manual-capture hold for the
// service price plus platform fee. No booking exists yet at this point;
// the client confirms the hold and then commits the booking with the
// returned payment intent id.
func (pc *PaymentController) CreatePaymentAuthorization(ctx echo.Context) error {
	claims := middleware.GetUserFromToken(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var request models.PaymentAuthorizationRequest
	if err := ctx.Bind(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request",
		})
	}
	if err := ctx.Validate(&request); err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "serviceId and serviceProviderId are required",
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(request.ServiceID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service ID",
		})
	}
	providerID, err := primitive.ObjectIDFromHex(request.ServiceProviderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service provider ID",
		})
	}

	var service models.Service
	err = config.GetCollection(pc.db, "services").FindOne(context.Background(), bson.M{
		"_id":               serviceID,
		"serviceProviderId": providerID,
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

	// The split is computed exactly once, here. The booking commit reads
	// these numbers back from the authorization's metadata rather than
	// recomputing them, so what the customer approved is what gets
	// recorded.
	baseAmount := service.Price
	platformFee := models.ComputePlatformFee(baseAmount, platformFeePercent())
	totalAmount := baseAmount + platformFee

	currency := service.Currency
	if currency == "" {
		currency = "usd"
	}

	pi, err := pc.stripe.CreateAuthorization(ctx.Request().Context(), services.AuthorizationParams{
		AmountMinor: models.ToMinorUnits(totalAmount),
		Currency:    currency,
		Metadata: models.PaymentMetadata{
			ServiceID:  request.ServiceID,
			ProviderID: request.ServiceProviderID,
			CustomerID: claims.UserID,
		},
		BaseAmount:  baseAmount,
		PlatformFee: platformFee,
	})
	if err != nil {
		if code := services.StripeErrorCode(err); code != "" {
			return ctx.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Payment authorization declined: " + code,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create payment authorization",
		})
	}

	return ctx.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Payment authorization created",
		Data: models.PaymentAuthorizationData{
			PaymentIntentID: pi.ID,
			ClientSecret:    pi.ClientSecret,
			BaseAmount:      baseAmount,
			PlatformFee:     platformFee,
			TotalAmount:     totalAmount,
			Currency:        currency,
		},
	})
}
