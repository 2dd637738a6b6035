package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID                primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	FullName          string              `json:"fullName" bson:"fullName"`
	Email             string              `json:"email" bson:"email"`
	Phone             string              `json:"phone,omitempty" bson:"phone,omitempty"`
	UserType          string              `json:"userType" bson:"userType"` // "user", "serviceProvider", "admin"
	ProfilePic        string              `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	ServiceProviderID *primitive.ObjectID `json:"serviceProviderId,omitempty" bson:"serviceProviderId,omitempty"`
	IsActive          bool                `json:"isActive" bson:"isActive"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Response is the standard JSON envelope for API responses
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
