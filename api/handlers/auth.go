package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
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

const tokenTTL = 24 * time.Hour

// User exported for testing purposes
type User struct {
	DB        databases.UserDatabase
	IDB       databases.IssueDatabase
	Mail      mailer.Sender
	Captcha   CaptchaVerifier
	JWTSecret string
}

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// createToken signs an HS256 JWT carrying the subject id and role.
func createToken(subject, role, secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SignupHandler registers a new user account
func (u User) SignupHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	u.signup(w, r, http.StatusConflict, false)
}

// CaptchaSignupHandler registers a new user account after verifying the
// submitted captcha token
func (u User) CaptchaSignupHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	u.signup(w, r, http.StatusBadRequest, true)
}

func (u User) signup(w http.ResponseWriter, r *http.Request, duplicateStatus int, requireCaptcha bool) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		config.ErrorStatus("name, email and password are required", http.StatusBadRequest, w, fmt.Errorf("missing required fields"))
		return
	}

	if requireCaptcha {
		if req.CaptchaToken == "" {
			config.ErrorStatus("captcha token is required", http.StatusBadRequest, w, fmt.Errorf("missing captcha token"))
			return
		}
		ok, err := u.Captcha.Verify(r.Context(), req.CaptchaToken)
		if err != nil || !ok {
			config.ErrorStatus("captcha verification failed", http.StatusBadRequest, w, err)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := u.DB.CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		config.ErrorStatus("failed to check for existing email", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("email already registered", duplicateStatus, w, fmt.Errorf("duplicate email: %s", req.Email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	user := models.User{
		ID:             primitive.NewObjectID(),
		Name:           req.Name,
		Email:          req.Email,
		Password:       string(hash),
		Role:           models.RoleUser,
		JoinedDrives:   []primitive.ObjectID{},
		ReportedIssues: []primitive.ObjectID{},
		Violations:     []primitive.ObjectID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	// welcome mail is best-effort
	if u.Mail != nil {
		sent := u.Mail.Send(user.Email, "Welcome to CivicHero", "", templates.RenderWelcome(user.Name), nil)
		if !sent {
			zap.S().Warnw("welcome email not delivered", "email", user.Email)
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User registered successfully",
		"id":      user.ID.Hex(),
	})
}

// LoginHandler authenticates a user and returns a signed token
func (u User) LoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if err != nil {
		config.ErrorStatus("invalid credentials", http.StatusBadRequest, w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("invalid credentials", http.StatusBadRequest, w, err)
		return
	}

	if user.Blocked {
		config.ErrorStatus("account is blocked", http.StatusForbidden, w, fmt.Errorf("blocked user: %s", user.ID.Hex()))
		return
	}

	token, err := createToken(user.ID.Hex(), user.Role, u.JWTSecret)
	if err != nil {
		config.ErrorStatus("failed to sign token", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": token,
		"role":  user.Role,
		"name":  user.Name,
		"email": user.Email,
	})
}

// MeHandler returns the caller's profile, owned issues and point total
func (u User) MeHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := api.CallerFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("no caller on context"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"_id": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get user", http.StatusNotFound, w, err)
		return
	}

	issues, err := u.IDB.Find(ctx, bson.M{"reporter": caller.ID})
	if err != nil {
		config.ErrorStatus("failed to get issues", http.StatusInternalServerError, w, err)
		return
	}
	if len(issues) == 0 {
		issues = []models.Issue{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"name":   user.Name,
		"email":  user.Email,
		"issues": issues,
		"points": len(issues) * 10,
	})
}
