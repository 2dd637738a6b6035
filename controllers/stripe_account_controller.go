package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/servana/servana_backend/config"
	"github.com/servana/servana_backend/middleware"
	"github.com/servana/servana_backend/models"
	"github.com/servana/servana_backend/services"
)

// accountStatusTTL bounds how stale the displayed account status can
// be. Payout decisions never read this cache.
const accountStatusTTL = 5 * time.Minute

// StripeAccountController exposes the provider's connected-account
// status for display. The processor is the source of truth; Mongo and
// Redis only mirror it.
type StripeAccountController struct {
	db     *mongo.Client
	redis  *redis.Client
	stripe services.PaymentProcessor
}

// NewStripeAccountController creates a new Stripe account controller
func NewStripeAccountController(db *mongo.Client, redisClient *redis.Client, stripe services.PaymentProcessor) *StripeAccountController {
	return &StripeAccountController{db: db, redis: redisClient, stripe: stripe}
}

func accountStatusCacheKey(accountID string) string {
	return "stripe:acct:" + accountID
}

// GetAccountStatus returns the provider's connected-account status,
// serving from cache when a fresh copy exists.
func (c *StripeAccountController) GetAccountStatus(ctx echo.Context) error {
	serviceProvider, errResp := c.ownProvider(ctx)
	if errResp != nil {
		return errResp
	}

	if serviceProvider.StripeAccountID == "" {
		return ctx.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Account status retrieved successfully",
			Data:    models.AccountStatusData{HasStripeAccount: false},
		})
	}

	if cached := c.readCachedStatus(ctx.Request().Context(), serviceProvider.StripeAccountID); cached != nil {
		return ctx.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Account status retrieved successfully",
			Data:    *cached,
		})
	}

	status, err := c.refreshStatus(ctx.Request().Context(), serviceProvider)
	if err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Unable to retrieve account status. Try again later",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account status retrieved successfully",
		Data:    *status,
	})
}

// RefreshAccountStatus bypasses the cache and re-reads the processor.
// Providers hit this after finishing onboarding steps so the dashboard
// reflects the change immediately.
func (c *StripeAccountController) RefreshAccountStatus(ctx echo.Context) error {
	serviceProvider, errResp := c.ownProvider(ctx)
	if errResp != nil {
		return errResp
	}

	if serviceProvider.StripeAccountID == "" {
		return ctx.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "No payout account is connected yet",
		})
	}

	status, err := c.refreshStatus(ctx.Request().Context(), serviceProvider)
	if err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Unable to retrieve account status. Try again later",
		})
	}

	return ctx.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account status refreshed successfully",
		Data:    *status,
	})
}

// readCachedStatus returns the cached status or nil on miss, expiry, or
// any cache error. Cache failures never fail the request.
func (c *StripeAccountController) readCachedStatus(ctx context.Context, accountID string) *models.AccountStatusData {
	if c.redis == nil {
		return nil
	}
	raw, err := c.redis.Get(ctx, accountStatusCacheKey(accountID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis read failed for account %s: %v", accountID, err)
		}
		return nil
	}
	var status models.AccountStatusData
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		log.Printf("Corrupt cached account status for %s: %v", accountID, err)
		return nil
	}
	return &status
}

// refreshStatus reads the processor and writes the result back to both
// mirrors. The Mongo write keeps the provider document's cached flags
// usable for listings; the Redis write serves the next few reads.
func (c *StripeAccountController) refreshStatus(ctx context.Context, serviceProvider *models.ServiceProvider) (*models.AccountStatusData, error) {
	account, err := c.stripe.GetAccount(ctx, serviceProvider.StripeAccountID)
	if err != nil {
		log.Printf("Failed to fetch connected account %s: %v", serviceProvider.StripeAccountID, err)
		return nil, err
	}

	var requirements []string
	if account.Requirements != nil {
		requirements = account.Requirements.CurrentlyDue
	}

	serviceProvider.ChargesEnabled = account.ChargesEnabled
	serviceProvider.DetailsSubmitted = account.DetailsSubmitted
	serviceProvider.Requirements = requirements

	status := models.AccountStatusData{
		HasStripeAccount:     true,
		AccountSetupComplete: serviceProvider.AccountSetupComplete(),
		ChargesEnabled:       account.ChargesEnabled,
		DetailsSubmitted:     account.DetailsSubmitted,
		AccountID:            account.ID,
		Requirements:         requirements,
	}

	now := time.Now()
	_, err = config.GetCollection(c.db, "serviceProviders").UpdateOne(ctx,
		bson.M{"_id": serviceProvider.ID},
		bson.M{"$set": bson.M{
			"chargesEnabled":   account.ChargesEnabled,
			"detailsSubmitted": account.DetailsSubmitted,
			"requirements":     requirements,
			"lastStripeSyncAt": now,
			"updatedAt":        now,
		}})
	if err != nil {
		log.Printf("Failed to sync account status to provider %s: %v", serviceProvider.ID.Hex(), err)
	}

	if c.redis != nil {
		if raw, err := json.Marshal(status); err == nil {
			if err := c.redis.Set(ctx, accountStatusCacheKey(serviceProvider.StripeAccountID), raw, accountStatusTTL).Err(); err != nil {
				log.Printf("Redis write failed for account %s: %v", serviceProvider.StripeAccountID, err)
			}
		}
	}

	return &status, nil
}

// ownProvider resolves the authenticated provider's profile, writing
// the error response itself on failure.
func (c *StripeAccountController) ownProvider(ctx echo.Context) (*models.ServiceProvider, error) {
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
			Message: "Only service providers can view account status",
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
