package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is a capstone project owned by a student team. Only the fields the
// originality pipeline reads are modelled here; team membership, title
// approval and grading live in the surrounding workflow services.
type Project struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title     string               `bson:"title" json:"title" binding:"required,min=3,max=300"`
	Status    string               `bson:"status" json:"status"` // proposed, approved, archived
	MemberIDs []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	AdviserID *primitive.ObjectID  `bson:"adviser_id,omitempty" json:"adviser_id,omitempty"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}
