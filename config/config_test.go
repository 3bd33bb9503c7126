package config_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civichero/civichero-api/config"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_DIR", "")
	t.Setenv("EMAIL_FROM_NAME", "")

	c := config.New()

	assert.Equal(t, "4900", c.Port)
	assert.Equal(t, "uploads", c.UploadDir)
	assert.Equal(t, "CivicHero Notifications", c.EmailFromName)
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_NAME", "civichero-test")
	t.Setenv("UPLOAD_DIR", "/tmp/uploads")

	c := config.New()

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "civichero-test", c.DatabaseName)
	assert.Equal(t, "/tmp/uploads", c.UploadDir)
}

func TestErrorStatusWritesStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()

	config.ErrorStatus("failed to get issue", http.StatusNotFound, rr, errors.New("mongo: no documents in result"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, `{"response": "failed to get issue, mongo: no documents in result"}`, rr.Body.String())
}
