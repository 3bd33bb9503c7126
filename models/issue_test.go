package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civichero/civichero-api/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestNewIssueAppliesDefaults(t *testing.T) {
	reporter := primitive.NewObjectID()

	issue, err := models.NewIssue("Pothole", "Deep pothole on Main St", "Main St", floatPtr(12.9), floatPtr(77.6), "", "", "", reporter)

	assert.NoError(t, err)
	assert.Equal(t, models.IssueStatusReported, issue.Status)
	assert.Equal(t, models.UrgencyMedium, issue.Urgency)
	assert.Equal(t, reporter, issue.Reporter)
	assert.False(t, issue.ID.IsZero())
	assert.Equal(t, 12.9, issue.Lat)
	assert.Equal(t, 77.6, issue.Lng)
}

func TestNewIssueRequiresCoordinates(t *testing.T) {
	reporter := primitive.NewObjectID()

	_, err := models.NewIssue("Pothole", "Deep pothole", "", nil, floatPtr(77.6), "", "", "", reporter)
	assert.Error(t, err)

	_, err = models.NewIssue("Pothole", "Deep pothole", "", floatPtr(12.9), nil, "", "", "", reporter)
	assert.Error(t, err)
}

func TestNewIssueRequiresTitleAndDescription(t *testing.T) {
	reporter := primitive.NewObjectID()

	_, err := models.NewIssue("", "desc", "", floatPtr(1), floatPtr(2), "", "", "", reporter)
	assert.Error(t, err)

	_, err = models.NewIssue("title", "", "", floatPtr(1), floatPtr(2), "", "", "", reporter)
	assert.Error(t, err)
}

func TestNewIssueRejectsBadEnums(t *testing.T) {
	reporter := primitive.NewObjectID()

	_, err := models.NewIssue("t", "d", "", floatPtr(1), floatPtr(2), "Critical", "", "", reporter)
	assert.Error(t, err)

	_, err = models.NewIssue("t", "d", "", floatPtr(1), floatPtr(2), "", "Done", "", reporter)
	assert.Error(t, err)
}

func TestValidIssueStatus(t *testing.T) {
	for _, s := range []string{
		models.IssueStatusReported,
		models.IssueStatusPending,
		models.IssueStatusInProgress,
		models.IssueStatusResolved,
	} {
		assert.True(t, models.ValidIssueStatus(s), s)
	}
	assert.False(t, models.ValidIssueStatus("Closed"))
	assert.False(t, models.ValidIssueStatus(""))
}
