package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Violation status values
const (
	ViolationStatusPending    = "Pending"
	ViolationStatusInProgress = "In Progress"
	ViolationStatusResolved   = "Resolved"
)

// Violation holds the structure for the violation collection in mongo
type Violation struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Type        string             `json:"type" bson:"type"`
	Description string             `json:"description" bson:"description"`
	Location    string             `json:"location,omitempty" bson:"location,omitempty"`
	Lat         *float64           `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng         *float64           `json:"lng,omitempty" bson:"lng,omitempty"`
	Evidence    string             `json:"evidence,omitempty" bson:"evidence,omitempty"`
	ReportedBy  primitive.ObjectID `json:"reportedBy" bson:"reportedBy"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ViolationPopulated is a Violation with the reportedBy reference resolved
// to the user's identity
type ViolationPopulated struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Type        string             `json:"type" bson:"type"`
	Description string             `json:"description" bson:"description"`
	Location    string             `json:"location,omitempty" bson:"location,omitempty"`
	Lat         *float64           `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng         *float64           `json:"lng,omitempty" bson:"lng,omitempty"`
	Evidence    string             `json:"evidence,omitempty" bson:"evidence,omitempty"`
	ReportedBy  UserSummary        `json:"reportedBy" bson:"reportedBy"`
	Status      string             `json:"status" bson:"status"`
	CreatedAt   primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt   primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// ValidViolationStatus reports whether s is one of the violation status enum values
func ValidViolationStatus(s string) bool {
	switch s {
	case ViolationStatusPending, ViolationStatusInProgress, ViolationStatusResolved:
		return true
	}
	return false
}

// NewViolation validates the submitted fields, applies the schema defaults
// and returns a ready-to-insert violation. Coordinates are optional here,
// unlike issues.
func NewViolation(vtype, description, location string, lat, lng *float64, evidence string, reportedBy primitive.ObjectID) (*Violation, error) {
	if vtype == "" || description == "" {
		return nil, &ValidationError{Field: "type/description", Reason: "type and description are required"}
	}
	if reportedBy.IsZero() {
		return nil, &ValidationError{Field: "reportedBy", Reason: "is required"}
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	return &Violation{
		ID:          primitive.NewObjectID(),
		Type:        vtype,
		Description: description,
		Location:    location,
		Lat:         lat,
		Lng:         lng,
		Evidence:    evidence,
		ReportedBy:  reportedBy,
		Status:      ViolationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
