package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/config"
	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/mailer"
	"github.com/civichero/civichero-api/models"
	templates "github.com/civichero/civichero-api/templates/html"
)

// Drive exported for testing purposes
type Drive struct {
	DB   databases.DriveDatabase
	UDB  databases.UserDatabase
	Mail mailer.Sender
}

type driveCreateRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Points      int       `json:"points"`
	Tag         string    `json:"tag"`
	Type        string    `json:"type"`
	Image       string    `json:"image"`
}

// DriveHandler returns upcoming drives, soonest first, with participant
// identities populated
func (h Drive) DriveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := primitive.NewDateTimeFromTime(time.Now())
	dbResp, err := h.DB.FindPopulated(ctx, bson.M{"date": bson.M{"$gte": now}})
	if err != nil {
		config.ErrorStatus("failed to get drives", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.DrivePopulated{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": dbResp,
	})
}

// DrivesJoinedHandler returns the drives the caller participates in,
// soonest first, with participant identities populated
func (h Drive) DrivesJoinedHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindPopulated(ctx, bson.M{"participants": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get drives", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.DrivePopulated{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"joinedDrives": dbResp,
	})
}

// DriveCreateHandler creates a new community drive. Any authenticated
// user may create one.
func (h Drive) DriveCreateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	var req driveCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	drive, err := models.NewDrive(req.Title, req.Description, req.Date, req.Points, req.Tag, req.Type, req.Image, caller.ID)
	if err != nil {
		config.ErrorStatus("invalid drive", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := h.DB.InsertOne(ctx, *drive); err != nil {
		config.ErrorStatus("failed to create drive", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Drive created successfully",
		"event":   drive,
	})
}

// DriveJoinHandler adds the caller to a drive's participant roster and
// mirrors the drive into the caller's joinedDrives set
func (h Drive) DriveJoinHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	driveID := mux.Vars(r)["drive_id"]
	dID, err := primitive.ObjectIDFromHex(driveID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	drive, err := h.DB.FindOne(ctx, bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to find drive", http.StatusNotFound, w, err)
		return
	}

	for _, p := range drive.Participants {
		if p == caller.ID {
			config.ErrorStatus("Already joined", http.StatusBadRequest, w, fmt.Errorf("user %s already a participant", caller.ID.Hex()))
			return
		}
	}

	if drive.Date.Time().Before(time.Now()) {
		config.ErrorStatus("cannot join a past drive", http.StatusBadRequest, w, fmt.Errorf("drive date %v has passed", drive.Date.Time()))
		return
	}

	if err := h.DB.UpdateOne(ctx, bson.M{"_id": dID}, bson.M{"$addToSet": bson.M{"participants": caller.ID}}); err != nil {
		config.ErrorStatus("failed to join drive", http.StatusInternalServerError, w, err)
		return
	}
	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": caller.ID}, bson.M{"$addToSet": bson.M{"joinedDrives": dID}})
	if err != nil {
		zap.S().Errorw("failed to update joinedDrives set",
			"drive", dID.Hex(),
			"user", caller.ID.Hex(),
			"error", err,
		)
	}

	h.notifyJoined(r, caller.ID, drive)

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Joined drive successfully",
	})
}

func (h Drive) notifyJoined(r *http.Request, userID primitive.ObjectID, drive *models.Drive) {
	if h.Mail == nil {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	user, err := h.UDB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil || user.Email == "" {
		return
	}
	date := drive.Date.Time().Format("January 2, 2006")
	sent := h.Mail.Send(user.Email, "Drive Registration Confirmed", "", templates.RenderDriveJoined(user.Name, drive.Title, date), nil)
	if !sent {
		zap.S().Warnw("drive confirmation email not delivered", "email", user.Email)
	}
}

// DriveLeaveHandler removes the caller from a drive's roster. Leaving a
// drive the caller never joined is a silent no-op.
func (h Drive) DriveLeaveHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	driveID := mux.Vars(r)["drive_id"]
	dID, err := primitive.ObjectIDFromHex(driveID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := h.DB.FindOne(ctx, bson.M{"_id": dID}); err != nil {
		config.ErrorStatus("failed to find drive", http.StatusNotFound, w, err)
		return
	}

	if err := h.DB.UpdateOne(ctx, bson.M{"_id": dID}, bson.M{"$pull": bson.M{"participants": caller.ID}}); err != nil {
		config.ErrorStatus("failed to leave drive", http.StatusInternalServerError, w, err)
		return
	}
	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": caller.ID}, bson.M{"$pull": bson.M{"joinedDrives": dID}})
	if err != nil {
		zap.S().Errorw("failed to update joinedDrives set",
			"drive", dID.Hex(),
			"user", caller.ID.Hex(),
			"error", err,
		)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Left drive successfully",
	})
}
