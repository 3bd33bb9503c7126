package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
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

const maxUploadMemory = 32 << 20

// IssuePointValue is awarded per resolved issue.
const IssuePointValue = 10

// Issue exported for testing purposes
type Issue struct {
	DB        databases.IssueDatabase
	UDB       databases.UserDatabase
	Mail      mailer.Sender
	UploadDir string
}

// parseCoord reads an optional float form field. Returns nil when the
// field is absent so required-coordinate validation can tell absence
// apart from zero.
func parseCoord(r *http.Request, field string) (*float64, error) {
	raw := r.FormValue(field)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &f, nil
}

// IssueCreateHandler files a new issue for the calling user
func (h Issue) IssueCreateHandler(w http.ResponseWriter, r *http.Request) {
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

	file, err := saveUploadedFile(r, "file", h.UploadDir)
	if err != nil {
		config.ErrorStatus("failed to store uploaded file", http.StatusInternalServerError, w, err)
		return
	}

	issue, err := models.NewIssue(
		r.FormValue("title"),
		r.FormValue("description"),
		r.FormValue("location"),
		lat, lng,
		r.FormValue("urgency"),
		r.FormValue("status"),
		file,
		caller.ID,
	)
	if err != nil {
		config.ErrorStatus("invalid issue", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := h.DB.InsertOne(ctx, *issue); err != nil {
		config.ErrorStatus("failed to create issue", http.StatusInternalServerError, w, err)
		return
	}

	// mirror the new id into the reporter's membership set; $addToSet keeps
	// concurrent creates from producing duplicates
	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": caller.ID}, bson.M{"$addToSet": bson.M{"reportedIssues": issue.ID}})
	if err != nil {
		zap.S().Errorw("failed to update reporter membership set",
			"issue", issue.ID.Hex(),
			"user", caller.ID.Hex(),
			"error", err,
		)
	}

	h.notifySubmitted(ctx, caller.ID, issue.Title)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Issue reported successfully",
		"issue":   issue,
	})
}

func (h Issue) notifySubmitted(ctx context.Context, reporter primitive.ObjectID, title string) {
	if h.Mail == nil {
		return
	}
	user, err := h.UDB.FindOne(ctx, bson.M{"_id": reporter})
	if err != nil || user.Email == "" {
		return
	}
	sent := h.Mail.Send(user.Email, "Report Received", "", templates.RenderReportSubmitted(user.Name, "issue", title), nil)
	if !sent {
		zap.S().Warnw("submission email not delivered", "email", user.Email)
	}
}

// IssueHandler returns all issues with reporter identity populated
func (h Issue) IssueHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindPopulated(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get issues", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.IssuePopulated{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// IssueByIDHandler returns an issue by ID
func (h Issue) IssueByIDHandler(w http.ResponseWriter, r *http.Request) {
	issueID := mux.Vars(r)["issue_id"]

	iID, err := primitive.ObjectIDFromHex(issueID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get issue by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// IssuesByUserHandler returns the caller's issues, newest first, plus the
// derived point total (10 per resolved issue)
func (h Issue) IssuesByUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	dbResp, err := h.DB.Find(ctx, bson.M{"reporter": caller.ID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get issues", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Issue{}
	}

	points := 0
	for _, issue := range dbResp {
		if issue.Status == models.IssueStatusResolved {
			points += IssuePointValue
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"issues": dbResp,
		"points": points,
	})
}

// IssueUpdateHandler merges submitted fields over an existing issue. A
// status write that moves the issue into Resolved fires a single
// resolution email to the reporter.
func (h Issue) IssueUpdateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	issueID := mux.Vars(r)["issue_id"]
	iID, err := primitive.ObjectIDFromHex(issueID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find issue", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	for _, field := range []string{"title", "description", "location"} {
		if v := r.FormValue(field); v != "" {
			set[field] = v
		}
	}
	if v := r.FormValue("urgency"); v != "" {
		if !models.ValidUrgency(v) {
			config.ErrorStatus("invalid urgency", http.StatusBadRequest, w, fmt.Errorf("urgency %q", v))
			return
		}
		set["urgency"] = v
	}

	lat, err := parseCoord(r, "lat")
	if err != nil {
		config.ErrorStatus("invalid latitude", http.StatusBadRequest, w, err)
		return
	}
	if lat != nil {
		set["lat"] = *lat
	}
	lng, err := parseCoord(r, "lng")
	if err != nil {
		config.ErrorStatus("invalid longitude", http.StatusBadRequest, w, err)
		return
	}
	if lng != nil {
		set["lng"] = *lng
	}

	file, err := saveUploadedFile(r, "file", h.UploadDir)
	if err != nil {
		config.ErrorStatus("failed to store uploaded file", http.StatusInternalServerError, w, err)
		return
	}
	if file != "" {
		set["file"] = file
	}

	resolved := false
	if v := r.FormValue("status"); v != "" {
		if !models.ValidIssueStatus(v) {
			config.ErrorStatus("invalid status", http.StatusBadRequest, w, fmt.Errorf("status %q", v))
			return
		}
		set["status"] = v
		if v == models.IssueStatusResolved && existing.Status != models.IssueStatusResolved {
			resolved = true
			set["resolvedAt"] = primitive.NewDateTimeFromTime(time.Now())
			set["resolvedBy"] = caller.ID
		}
	}

	if err := h.DB.UpdateOne(ctx, bson.M{"_id": iID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update issue", http.StatusInternalServerError, w, err)
		return
	}

	if resolved {
		h.notifyResolved(ctx, existing.Reporter, existing.Title)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Issue updated successfully",
	})
}

func (h Issue) notifyResolved(ctx context.Context, reporter primitive.ObjectID, title string) {
	if h.Mail == nil {
		return
	}
	user, err := h.UDB.FindOne(ctx, bson.M{"_id": reporter})
	if err != nil || user.Email == "" {
		return
	}
	sent := h.Mail.Send(user.Email, "Report Resolved", "", templates.RenderReportResolved(user.Name, "issue", title, IssuePointValue), nil)
	if !sent {
		zap.S().Warnw("resolution email not delivered", "email", user.Email)
	}
}

// IssueDeleteHandler removes an issue and clears the reporter's
// back-reference. Deleting an unknown id is a 404, not a silent success.
func (h Issue) IssueDeleteHandler(w http.ResponseWriter, r *http.Request) {
	issueID := mux.Vars(r)["issue_id"]

	iID, err := primitive.ObjectIDFromHex(issueID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find issue", http.StatusNotFound, w, err)
		return
	}

	count, err := h.DB.DeleteOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to delete issue", http.StatusInternalServerError, w, err)
		return
	}
	if count == 0 {
		config.ErrorStatus("issue not found", http.StatusNotFound, w, errors.New("already deleted"))
		return
	}

	// cascade: a missing reporter makes this a no-op, not an error
	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": existing.Reporter}, bson.M{"$pull": bson.M{"reportedIssues": iID}})
	if err != nil {
		zap.S().Errorw("failed to clear reporter membership set",
			"issue", iID.Hex(),
			"user", existing.Reporter.Hex(),
			"error", err,
		)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Issue deleted successfully",
	})
}
