package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Drive type values
const (
	DriveTypeUpcoming = "upcoming"
	DriveTypePast     = "past"
)

// DefaultDriveImage is the placeholder shown when no image is supplied
const DefaultDriveImage = "https://source.unsplash.com/600x400/?community"

// Drive holds the structure for the drive collection in mongo
type Drive struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Title        string               `json:"title" bson:"title"`
	Description  string               `json:"description" bson:"description"`
	Date         primitive.DateTime   `json:"date" bson:"date"`
	Points       int                  `json:"points" bson:"points"`
	Tag          string               `json:"tag" bson:"tag"`
	Type         string               `json:"type" bson:"type"`
	Image        string               `json:"image" bson:"image"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	CreatedBy    primitive.ObjectID   `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    primitive.DateTime   `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime   `json:"updatedAt" bson:"updatedAt"`
}

// DrivePopulated is a Drive with the participant references resolved to the
// users' identities
type DrivePopulated struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	Date         primitive.DateTime `json:"date" bson:"date"`
	Points       int                `json:"points" bson:"points"`
	Tag          string             `json:"tag" bson:"tag"`
	Type         string             `json:"type" bson:"type"`
	Image        string             `json:"image" bson:"image"`
	Participants []UserSummary      `json:"participants" bson:"participants"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt    primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// NewDrive validates the submitted fields, applies the schema defaults and
// returns a ready-to-insert drive with an empty participant roster.
func NewDrive(title, description string, date time.Time, points int, tag, driveType, image string, createdBy primitive.ObjectID) (*Drive, error) {
	if title == "" || description == "" || date.IsZero() {
		return nil, &ValidationError{Field: "title/description/date", Reason: "title, description, and date are required"}
	}
	if points == 0 {
		points = 10
	}
	if points < 0 {
		return nil, &ValidationError{Field: "points", Reason: "must not be negative"}
	}
	if tag == "" {
		tag = "community"
	}
	if driveType == "" {
		driveType = DriveTypeUpcoming
	}
	if driveType != DriveTypeUpcoming && driveType != DriveTypePast {
		return nil, &ValidationError{Field: "type", Reason: "must be upcoming or past"}
	}
	if image == "" {
		image = DefaultDriveImage
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	return &Drive{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Description:  description,
		Date:         primitive.NewDateTimeFromTime(date),
		Points:       points,
		Tag:          tag,
		Type:         driveType,
		Image:        image,
		Participants: []primitive.ObjectID{},
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
