package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/civichero/civichero-api/api/handlers"
	mocksdb "github.com/civichero/civichero-api/databases/mocks"
	"github.com/civichero/civichero-api/models"
)

func TestSignupHandlerDuplicateEmailReturns409(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	udb.On("CountDocuments", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(int64(1), nil)
	u := handlers.User{DB: udb}

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "Asha@Example.com",
		"password": "hunter22",
	})
	req, err := http.NewRequest("POST", "/api/auth/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.SignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}
	udb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestCaptchaSignupHandlerDuplicateEmailReturns400(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	udb.On("CountDocuments", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(int64(1), nil)
	u := handlers.User{DB: udb, Captcha: fakeVerifier{ok: true}}

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "hunter22",
		"token":    "tok",
	})
	req, err := http.NewRequest("POST", "/api/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.CaptchaSignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestCaptchaSignupHandlerMissingTokenReturns400(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	u := handlers.User{DB: udb, Captcha: fakeVerifier{ok: true}}

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "hunter22",
	})
	req, err := http.NewRequest("POST", "/api/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.CaptchaSignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	udb.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
}

func TestCaptchaSignupHandlerRejectedTokenReturns400(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	u := handlers.User{DB: udb, Captcha: fakeVerifier{ok: false}}

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "hunter22",
		"token":    "bad-token",
	})
	req, err := http.NewRequest("POST", "/api/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.CaptchaSignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	udb.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
}

func TestCaptchaSignupHandlerAcceptsTokenField(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	udb.On("CountDocuments", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(int64(0), nil)
	udb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).
		Return(primitive.NewObjectID(), nil)
	u := handlers.User{DB: udb, Captcha: fakeVerifier{ok: true}}

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "hunter22",
		"token":    "tok",
	})
	req, err := http.NewRequest("POST", "/api/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.CaptchaSignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}
}

func TestSignupHandlerCreatesUserAndSendsWelcome(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	sender := &fakeSender{result: true}
	u := handlers.User{DB: udb, Mail: sender}

	udb.On("CountDocuments", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(int64(0), nil)

	var inserted models.User
	udb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.User")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.User)
		}).
		Return(primitive.NewObjectID(), nil)

	body, _ := json.Marshal(map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "hunter22",
	})
	req, err := http.NewRequest("POST", "/api/auth/signup", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.SignupHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}
	assert.Equal(t, models.RoleUser, inserted.Role)
	assert.NotEqual(t, "hunter22", inserted.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.Password), []byte("hunter22")))
	assert.NotNil(t, inserted.ReportedIssues)
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, "Welcome to CivicHero", sender.sent[0].subject)
}

func TestLoginHandlerWrongPasswordReturns400(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)

	udb := &mocksdb.UserDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(&models.User{ID: primitive.NewObjectID(), Email: "asha@example.com", Password: string(hash)}, nil)
	u := handlers.User{DB: udb, JWTSecret: "secret"}

	body, _ := json.Marshal(map[string]string{"email": "asha@example.com", "password": "wrong"})
	req, err := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestLoginHandlerUnknownEmailReturns400(t *testing.T) {
	udb := &mocksdb.UserDatabase{}
	udb.On("FindOne", mock.Anything, mock.Anything).
		Return(nil, errors.New("mongo: no documents in result"))
	u := handlers.User{DB: udb, JWTSecret: "secret"}

	body, _ := json.Marshal(map[string]string{"email": "ghost@example.com", "password": "whatever"})
	req, err := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestLoginHandlerBlockedUserReturns403(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)

	udb := &mocksdb.UserDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(&models.User{
			ID:       primitive.NewObjectID(),
			Email:    "asha@example.com",
			Password: string(hash),
			Blocked:  true,
		}, nil)
	u := handlers.User{DB: udb, JWTSecret: "secret"}

	body, _ := json.Marshal(map[string]string{"email": "asha@example.com", "password": "hunter22"})
	req, err := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusForbidden {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusForbidden)
	}
}

func TestLoginHandlerIssuesSignedToken(t *testing.T) {
	userID := primitive.NewObjectID()
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.DefaultCost)

	udb := &mocksdb.UserDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"email": "asha@example.com"}).
		Return(&models.User{
			ID:       userID,
			Name:     "Asha",
			Email:    "asha@example.com",
			Password: string(hash),
			Role:     models.RoleUser,
		}, nil)
	u := handlers.User{DB: udb, JWTSecret: "secret"}

	body, _ := json.Marshal(map[string]string{"email": "asha@example.com", "password": "hunter22"})
	req, err := http.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	token, err := jwt.Parse(resp["token"].(string), func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	assert.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, userID.Hex(), claims["sub"])
	assert.Equal(t, models.RoleUser, claims["role"])
	assert.Equal(t, models.RoleUser, resp["role"])
	assert.Equal(t, "Asha", resp["name"])
}

func TestMeHandlerDerivesPointsFromIssueCount(t *testing.T) {
	callerID := primitive.NewObjectID()

	udb := &mocksdb.UserDatabase{}
	idb := &mocksdb.IssueDatabase{}
	udb.On("FindOne", mock.Anything, bson.M{"_id": callerID}).
		Return(&models.User{ID: callerID, Name: "Asha", Email: "asha@example.com"}, nil)
	idb.On("Find", mock.Anything, bson.M{"reporter": callerID}).
		Return([]models.Issue{{}, {}, {}}, nil)
	u := handlers.User{DB: udb, IDB: idb}

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = withCaller(req, callerID, models.RoleUser)

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.MeHandler).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, float64(30), resp["points"])
	assert.Equal(t, "Asha", resp["name"])
}
