package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/config"
	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/mailer"
	"github.com/civichero/civichero-api/models"
	templates "github.com/civichero/civichero-api/templates/html"
)

// ViolationPointValue is awarded per resolved violation.
const ViolationPointValue = 5

// Violation exported for testing purposes
type Violation struct {
	DB        databases.ViolationDatabase
	UDB       databases.UserDatabase
	Mail      mailer.Sender
	UploadDir string
}

// ViolationReportHandler files a new violation for the calling user
func (h Violation) ViolationReportHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}

	lat, err := parseCoord(r, "lat")
	if err != nil {
		config.ErrorStatus("invalid latitude", http.StatusBadRequest, w, err)
		return
	}
	lng, err := parseCoord(r, "lng")
	if err != nil {
		config.ErrorStatus("invalid longitude", http.StatusBadRequest, w, err)
		return
	}

	evidence, err := saveUploadedFile(r, "evidence", h.UploadDir)
	if err != nil {
		config.ErrorStatus("failed to store uploaded file", http.StatusInternalServerError, w, err)
		return
	}

	violation, err := models.NewViolation(
		r.FormValue("type"),
		r.FormValue("description"),
		r.FormValue("location"),
		lat, lng,
		evidence,
		caller.ID,
	)
	if err != nil {
		config.ErrorStatus("invalid violation", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := h.DB.InsertOne(ctx, *violation); err != nil {
		config.ErrorStatus("failed to create violation", http.StatusInternalServerError, w, err)
		return
	}

	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": caller.ID}, bson.M{"$addToSet": bson.M{"violations": violation.ID}})
	if err != nil {
		zap.S().Errorw("failed to update reporter membership set",
			"violation", violation.ID.Hex(),
			"user", caller.ID.Hex(),
			"error", err,
		)
	}

	h.notifySubmitted(ctx, caller.ID, violation.Type)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Violation reported successfully",
		"violation": violation,
	})
}

func (h Violation) notifySubmitted(ctx context.Context, reporter primitive.ObjectID, vtype string) {
	if h.Mail == nil {
		return
	}
	user, err := h.UDB.FindOne(ctx, bson.M{"_id": reporter})
	if err != nil || user.Email == "" {
		return
	}
	sent := h.Mail.Send(user.Email, "Report Received", "", templates.RenderReportSubmitted(user.Name, "violation", vtype), nil)
	if !sent {
		zap.S().Warnw("submission email not delivered", "email", user.Email)
	}
}

// ViolationHandler returns all violations with reporter identity populated
func (h Violation) ViolationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindPopulated(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get violations", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.ViolationPopulated{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ViolationsByUserHandler returns the caller's violations, newest first,
// plus the derived point total (5 per resolved violation)
func (h Violation) ViolationsByUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	dbResp, err := h.DB.Find(ctx, bson.M{"reportedBy": caller.ID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get violations", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Violation{}
	}

	points := 0
	for _, violation := range dbResp {
		if violation.Status == models.ViolationStatusResolved {
			points += ViolationPointValue
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"violations": dbResp,
		"points":     points,
	})
}
