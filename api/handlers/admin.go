package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/config"
	"github.com/civichero/civichero-api/databases"
	"github.com/civichero/civichero-api/mailer"
	"github.com/civichero/civichero-api/models"
	templates "github.com/civichero/civichero-api/templates/html"
)

// TopReporterLimit caps the leaderboard length.
const TopReporterLimit = 5

// Admin exported for testing purposes
type Admin struct {
	ADB       databases.AdminDatabase
	UDB       databases.UserDatabase
	IDB       databases.IssueDatabase
	VDB       databases.ViolationDatabase
	DDB       databases.DriveDatabase
	Mail      mailer.Sender
	JWTSecret string
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// AdminLoginHandler authenticates an admin and returns a signed token
func (h Admin) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	admin, err := h.ADB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		config.ErrorStatus("invalid credentials", http.StatusBadRequest, w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid credentials", http.StatusBadRequest, w, err)
		return
	}

	token, err := createToken(admin.ID.Hex(), models.RoleAdmin, h.JWTSecret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"role":  models.RoleAdmin,
		"email": admin.Email,
	})
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// StatsHandler returns issue counts by status and a histogram of issue
// creation months, keyed Jan through Dec and zero-filled
func (h Admin) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counts := map[string]interface{}{}
	for key, filter := range map[string]bson.M{
		"total":      {},
		"resolved":   {"status": models.IssueStatusResolved},
		"pending":    {"status": models.IssueStatusPending},
		"inProgress": {"status": models.IssueStatusInProgress},
		"reported":   {"status": models.IssueStatusReported},
	} {
		n, err := h.IDB.CountDocuments(ctx, filter)
		if err != nil {
			config.ErrorStatus("failed to count issues", http.StatusInternalServerError, w, err)
			return
		}
		counts[key] = n
	}

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   bson.M{"$month": "$createdAt"},
			"count": bson.M{"$sum": 1},
		}},
	}
	var buckets []struct {
		Month int `bson:"_id"`
		Count int `bson:"count"`
	}
	if err := h.IDB.Aggregate(ctx, pipeline, &buckets); err != nil {
		config.ErrorStatus("failed to aggregate monthly counts", http.StatusInternalServerError, w, err)
		return
	}

	monthly := make(map[string]int, len(monthNames))
	for _, m := range monthNames {
		monthly[m] = 0
	}
	for _, b := range buckets {
		if b.Month >= 1 && b.Month <= len(monthNames) {
			monthly[monthNames[b.Month-1]] = b.Count
		}
	}
	counts["monthly"] = monthly

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(counts)
}

// TopReportersHandler returns the top issue reporters, descending by
// count. Reporters that no longer resolve to a user are dropped.
func (h Admin) TopReportersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   "$reporter",
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"count": -1}},
		{"$limit": TopReporterLimit},
	}
	var grouped []struct {
		Reporter primitive.ObjectID `bson:"_id"`
		Count    int                `bson:"count"`
	}
	if err := h.IDB.Aggregate(ctx, pipeline, &grouped); err != nil {
		config.ErrorStatus("failed to aggregate top reporters", http.StatusInternalServerError, w, err)
		return
	}

	reporters := []map[string]interface{}{}
	for _, g := range grouped {
		user, err := h.UDB.FindOne(ctx, bson.M{"_id": g.Reporter})
		if err != nil {
			// dangling reporter id, silently filtered
			continue
		}
		reporters = append(reporters, map[string]interface{}{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"reports": g.Count,
		})
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(reporters)
}

// IssuesHandler returns all issues with reporter identity populated
func (h Admin) IssuesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.IDB.FindPopulated(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get issues", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.IssuePopulated{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dbResp)
}

// IssueStatusHandler sets an issue's status. Entering Resolved fires a
// single resolution email to the reporter; a Resolved to Resolved write
// does not re-send.
func (h Admin) IssueStatusHandler(w http.ResponseWriter, r *http.Request) {
	caller, _ := api.CallerFromContext(r.Context())

	iID, err := primitive.ObjectIDFromHex(mux.Vars(r)["issue_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !models.ValidIssueStatus(req.Status) {
		config.ErrorStatus("invalid status", http.StatusBadRequest, w, fmt.Errorf("status %q", req.Status))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.IDB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find issue", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{
		"status":    req.Status,
		"updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}
	resolved := req.Status == models.IssueStatusResolved && existing.Status != models.IssueStatusResolved
	if resolved {
		set["resolvedAt"] = primitive.NewDateTimeFromTime(time.Now())
		set["resolvedBy"] = caller.ID
	}

	if err := h.IDB.UpdateOne(ctx, bson.M{"_id": iID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update issue", http.StatusInternalServerError, w, err)
		return
	}

	if resolved {
		h.notifyResolved(ctx, existing.Reporter, "issue", existing.Title, IssuePointValue)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Issue updated successfully",
		"status":  req.Status,
	})
}

// IssueDeleteHandler deletes an issue with the reporter cascade
func (h Admin) IssueDeleteHandler(w http.ResponseWriter, r *http.Request) {
	iID, err := primitive.ObjectIDFromHex(mux.Vars(r)["issue_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.IDB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to find issue", http.StatusNotFound, w, err)
		return
	}

	if _, err := h.IDB.DeleteOne(ctx, bson.M{"_id": iID}); err != nil {
		config.ErrorStatus("failed to delete issue", http.StatusInternalServerError, w, err)
		return
	}

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

// ViolationsHandler returns all violations with reporter identity populated
func (h Admin) ViolationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.VDB.FindPopulated(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get violations", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.ViolationPopulated{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dbResp)
}

// ViolationStatusHandler sets a violation's status with the same
// edge-triggered resolution email rule as issues
func (h Admin) ViolationStatusHandler(w http.ResponseWriter, r *http.Request) {
	vID, err := primitive.ObjectIDFromHex(mux.Vars(r)["violation_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !models.ValidViolationStatus(req.Status) {
		config.ErrorStatus("invalid status", http.StatusBadRequest, w, fmt.Errorf("status %q", req.Status))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.VDB.FindOne(ctx, bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to find violation", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{
		"status":    req.Status,
		"updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}
	if err := h.VDB.UpdateOne(ctx, bson.M{"_id": vID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update violation", http.StatusInternalServerError, w, err)
		return
	}

	if req.Status == models.ViolationStatusResolved && existing.Status != models.ViolationStatusResolved {
		h.notifyResolved(ctx, existing.ReportedBy, "violation", existing.Type, ViolationPointValue)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Violation updated successfully",
		"status":  req.Status,
	})
}

// ViolationDeleteHandler deletes a violation with the reporter cascade
func (h Admin) ViolationDeleteHandler(w http.ResponseWriter, r *http.Request) {
	vID, err := primitive.ObjectIDFromHex(mux.Vars(r)["violation_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := h.VDB.FindOne(ctx, bson.M{"_id": vID})
	if err != nil {
		config.ErrorStatus("failed to find violation", http.StatusNotFound, w, err)
		return
	}

	if _, err := h.VDB.DeleteOne(ctx, bson.M{"_id": vID}); err != nil {
		config.ErrorStatus("failed to delete violation", http.StatusInternalServerError, w, err)
		return
	}

	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": existing.ReportedBy}, bson.M{"$pull": bson.M{"violations": vID}})
	if err != nil {
		zap.S().Errorw("failed to clear reporter membership set",
			"violation", vID.Hex(),
			"user", existing.ReportedBy.Hex(),
			"error", err,
		)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Violation deleted successfully",
	})
}

func (h Admin) notifyResolved(ctx context.Context, reporter primitive.ObjectID, kind, title string, points int) {
	if h.Mail == nil {
		return
	}
	user, err := h.UDB.FindOne(ctx, bson.M{"_id": reporter})
	if err != nil || user.Email == "" {
		return
	}
	sent := h.Mail.Send(user.Email, "Report Resolved", "", templates.RenderReportResolved(user.Name, kind, title, points), nil)
	if !sent {
		zap.S().Warnw("resolution email not delivered", "email", user.Email)
	}
}

// UsersHandler returns all users with password hashes omitted
func (h Admin) UsersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := h.UDB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.User{}
	}
	for i := range dbResp {
		dbResp[i].Password = ""
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dbResp)
}

type userUpdateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Points *int    `json:"points"`
}

// UserUpdateHandler edits a user's profile fields
func (h Admin) UserUpdateHandler(w http.ResponseWriter, r *http.Request) {
	uID, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{"updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Email != nil {
		set["email"] = strings.TrimSpace(strings.ToLower(*req.Email))
	}
	if req.Points != nil {
		if *req.Points < 0 {
			config.ErrorStatus("points must not be negative", http.StatusBadRequest, w, fmt.Errorf("points %d", *req.Points))
			return
		}
		set["points"] = *req.Points
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := h.UDB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if result.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, fmt.Errorf("unknown user %s", uID.Hex()))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User updated successfully",
	})
}

// UserBlockHandler toggles a user's blocked flag
func (h Admin) UserBlockHandler(w http.ResponseWriter, r *http.Request) {
	uID, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := h.UDB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to find user", http.StatusNotFound, w, err)
		return
	}

	blocked := !user.Blocked
	_, err = h.UDB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": bson.M{
		"blocked":   blocked,
		"updatedAt": primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User block state updated",
		"blocked": blocked,
	})
}

// UserDeleteHandler removes a user and cascade-clears their reports and
// drive memberships. The cascade is a sequence of independent writes.
func (h Admin) UserDeleteHandler(w http.ResponseWriter, r *http.Request) {
	uID, err := primitive.ObjectIDFromHex(mux.Vars(r)["user_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := h.UDB.DeleteOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}
	if count == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, fmt.Errorf("unknown user %s", uID.Hex()))
		return
	}

	if _, err := h.IDB.DeleteMany(ctx, bson.M{"reporter": uID}); err != nil {
		zap.S().Errorw("failed to delete user's issues", "user", uID.Hex(), "error", err)
	}
	if _, err := h.VDB.DeleteMany(ctx, bson.M{"reportedBy": uID}); err != nil {
		zap.S().Errorw("failed to delete user's violations", "user", uID.Hex(), "error", err)
	}
	if _, err := h.DDB.UpdateMany(ctx, bson.M{"participants": uID}, bson.M{"$pull": bson.M{"participants": uID}}); err != nil {
		zap.S().Errorw("failed to clear drive participation", "user", uID.Hex(), "error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User deleted successfully",
	})
}

type sendEmailRequest struct {
	ReportID   string `json:"reportId"`
	ReportType string `json:"reportType"`
}

// SendEmailHandler manually triggers a resolution-style email for a
// report, regardless of its current status
func (h Admin) SendEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	rID, err := primitive.ObjectIDFromHex(req.ReportID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	switch req.ReportType {
	case "issue":
		issue, err := h.IDB.FindOne(ctx, bson.M{"_id": rID})
		if err != nil {
			config.ErrorStatus("failed to find issue", http.StatusNotFound, w, err)
			return
		}
		h.notifyResolved(ctx, issue.Reporter, "issue", issue.Title, IssuePointValue)
	case "violation":
		violation, err := h.VDB.FindOne(ctx, bson.M{"_id": rID})
		if err != nil {
			config.ErrorStatus("failed to find violation", http.StatusNotFound, w, err)
			return
		}
		h.notifyResolved(ctx, violation.ReportedBy, "violation", violation.Type, ViolationPointValue)
	default:
		config.ErrorStatus("invalid report type", http.StatusBadRequest, w, fmt.Errorf("reportType %q", req.ReportType))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Email dispatched",
	})
}
