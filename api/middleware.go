package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/models"
)

type contextKey string

const callerContextKey contextKey = "caller"

// Caller is the authenticated principal extracted from a bearer token.
type Caller struct {
	ID   primitive.ObjectID
	Role string
}

// Auth verifies bearer tokens and stores the caller identity on the
// request context.
type Auth struct {
	Secret string
}

// Middleware rejects requests without a valid bearer token.
func (a Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		caller, err := a.callerFromRequest(r)
		if err != nil {
			zap.S().Debugw("unauthorized",
				"url", r.URL,
				"error", err,
			)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
	})
}

// AdminOnly rejects requests whose caller is not an admin. It must be
// wrapped by Middleware so the caller is already on the context.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok || caller.Role != models.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "admin access required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a Auth) callerFromRequest(r *http.Request) (Caller, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Caller{}, fmt.Errorf("missing authorization header")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header || raw == "" {
		return Caller{}, fmt.Errorf("malformed authorization header")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.Secret), nil
	})
	if err != nil {
		return Caller{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Caller{}, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return Caller{}, fmt.Errorf("invalid subject: %w", err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = models.RoleUser
	}

	return Caller{ID: id, Role: role}, nil
}

// ContextWithCaller returns a copy of parent carrying the caller identity.
func ContextWithCaller(parent context.Context, caller Caller) context.Context {
	return context.WithValue(parent, callerContextKey, caller)
}

// CallerFromContext extracts the caller identity stored by Middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(Caller)
	return caller, ok
}
