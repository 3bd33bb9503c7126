package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Issue status values
const (
	IssueStatusReported   = "Reported"
	IssueStatusPending    = "Pending"
	IssueStatusInProgress = "In Progress"
	IssueStatusResolved   = "Resolved"
)

// Issue urgency values
const (
	UrgencyLow    = "Low"
	UrgencyMedium = "Medium"
	UrgencyHigh   = "High"
)

// Issue holds the structure for the issue collection in mongo
type Issue struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	Location    string              `json:"location,omitempty" bson:"location,omitempty"`
	Lat         float64             `json:"lat" bson:"lat"`
	Lng         float64             `json:"lng" bson:"lng"`
	Urgency     string              `json:"urgency" bson:"urgency"`
	File        string              `json:"file,omitempty" bson:"file,omitempty"`
	Status      string              `json:"status" bson:"status"`
	Reporter    primitive.ObjectID  `json:"reporter" bson:"reporter"`
	ResolvedAt  *primitive.DateTime `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	ResolvedBy  *primitive.ObjectID `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	CreatedAt   primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// IssuePopulated is an Issue with the reporter reference resolved to the
// user's identity
type IssuePopulated struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	Location    string              `json:"location,omitempty" bson:"location,omitempty"`
	Lat         float64             `json:"lat" bson:"lat"`
	Lng         float64             `json:"lng" bson:"lng"`
	Urgency     string              `json:"urgency" bson:"urgency"`
	File        string              `json:"file,omitempty" bson:"file,omitempty"`
	Status      string              `json:"status" bson:"status"`
	Reporter    UserSummary         `json:"reporter" bson:"reporter"`
	ResolvedAt  *primitive.DateTime `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	CreatedAt   primitive.DateTime  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime  `json:"updatedAt" bson:"updatedAt"`
}

// ValidIssueStatus reports whether s is one of the issue status enum values
func ValidIssueStatus(s string) bool {
	switch s {
	case IssueStatusReported, IssueStatusPending, IssueStatusInProgress, IssueStatusResolved:
		return true
	}
	return false
}

// ValidUrgency reports whether u is one of the urgency enum values
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// NewIssue validates the submitted fields, applies the schema defaults and
// returns a ready-to-insert issue. Lat and lng are pointers so an absent
// coordinate can be told apart from 0.
func NewIssue(title, description, location string, lat, lng *float64, urgency, status, file string, reporter primitive.ObjectID) (*Issue, error) {
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "is required"}
	}
	if description == "" {
		return nil, &ValidationError{Field: "description", Reason: "is required"}
	}
	if lat == nil || lng == nil {
		return nil, &ValidationError{Field: "lat/lng", Reason: "latitude and longitude are required"}
	}
	if reporter.IsZero() {
		return nil, &ValidationError{Field: "reporter", Reason: "is required"}
	}
	if urgency == "" {
		urgency = UrgencyMedium
	}
	if !ValidUrgency(urgency) {
		return nil, &ValidationError{Field: "urgency", Reason: "must be one of Low, Medium, High"}
	}
	if status == "" {
		status = IssueStatusReported
	}
	if !ValidIssueStatus(status) {
		return nil, &ValidationError{Field: "status", Reason: "is not a valid issue status"}
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	return &Issue{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Location:    location,
		Lat:         *lat,
		Lng:         *lng,
		Urgency:     urgency,
		File:        file,
		Status:      status,
		Reporter:    reporter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
