package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role values stored on the user collection
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User holds the structure for the user collection in mongo
type User struct {
	ID             primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name"`
	Email          string               `json:"email" bson:"email"`
	Password       string               `json:"password,omitempty" bson:"password"`
	Role           string               `json:"role" bson:"role"`
	Points         int                  `json:"points" bson:"points"`
	Blocked        bool                 `json:"blocked" bson:"blocked"`
	JoinedDrives   []primitive.ObjectID `json:"joinedDrives" bson:"joinedDrives"`
	ReportedIssues []primitive.ObjectID `json:"reportedIssues" bson:"reportedIssues"`
	Violations     []primitive.ObjectID `json:"violations" bson:"violations"`
	CreatedAt      primitive.DateTime   `json:"createdAt" bson:"createdAt"`
	UpdatedAt      primitive.DateTime   `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the slimmed-down identity embedded when a referenced user is
// populated onto a report or drive
type UserSummary struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email" bson:"email"`
}
