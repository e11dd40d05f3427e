package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudyPlan groups study sessions over one book or passage.
// Plans and their sessions are hard-deleted.
type StudyPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Title       string             `bson:"title" json:"title"`
	Book        string             `bson:"book,omitempty" json:"book,omitempty"`
	Passage     string             `bson:"passage,omitempty" json:"passage,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
