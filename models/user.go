package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username     string              `bson:"username" json:"username" binding:"required,min=3,max=50"`
	Name         string              `bson:"name" json:"name" binding:"required,min=2,max=100"`
	Email        string              `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string              `bson:"password_hash" json:"-"`
	Role         string              `bson:"role" json:"role" binding:"required,oneof=coordinator adviser panelist student"`
	ProjectID    *primitive.ObjectID `bson:"project_id,omitempty" json:"project_id,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// Role constants used by the auth middleware.
const (
	RoleCoordinator = "coordinator"
	RoleAdviser     = "adviser"
	RolePanelist    = "panelist"
	RoleStudent     = "student"
)
