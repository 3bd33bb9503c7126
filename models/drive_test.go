package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civichero/civichero-api/models"
)

func TestNewDriveAppliesDefaults(t *testing.T) {
	date := time.Now().Add(72 * time.Hour)

	d, err := models.NewDrive("Lake cleanup", "Bring gloves", date, 0, "", "", "", primitive.NewObjectID())

	assert.NoError(t, err)
	assert.Equal(t, 10, d.Points)
	assert.Equal(t, "community", d.Tag)
	assert.Equal(t, models.DriveTypeUpcoming, d.Type)
	assert.Equal(t, models.DefaultDriveImage, d.Image)
	assert.NotNil(t, d.Participants)
	assert.Len(t, d.Participants, 0)
}

func TestNewDriveRequiresCoreFields(t *testing.T) {
	creator := primitive.NewObjectID()
	date := time.Now().Add(time.Hour)

	_, err := models.NewDrive("", "desc", date, 0, "", "", "", creator)
	assert.Error(t, err)

	_, err = models.NewDrive("title", "", date, 0, "", "", "", creator)
	assert.Error(t, err)

	_, err = models.NewDrive("title", "desc", time.Time{}, 0, "", "", "", creator)
	assert.Error(t, err)
}

func TestNewDriveRejectsBadTypeAndNegativePoints(t *testing.T) {
	creator := primitive.NewObjectID()
	date := time.Now().Add(time.Hour)

	_, err := models.NewDrive("title", "desc", date, 0, "", "weekly", "", creator)
	assert.Error(t, err)

	_, err = models.NewDrive("title", "desc", date, -5, "", "", "", creator)
	assert.Error(t, err)
}
