package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is an in-app message for a user. The pipeline only ever writes
// these fire-and-forget; the surrounding API layer lists and marks them read.
type Notification struct {
	ID        string                 `bson:"_id" json:"id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Type      string                 `bson:"type" json:"type"`
	Payload   map[string]interface{} `bson:"payload,omitempty" json:"payload,omitempty"`
	Read      bool                   `bson:"read" json:"read"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

// Notification type constants.
const (
	NotificationPlagiarismChecked = "plagiarism_checked"
	NotificationCheckFailed       = "plagiarism_check_failed"
)
