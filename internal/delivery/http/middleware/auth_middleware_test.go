package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-backend/config"
	"clinic-backend/internal/domain/entity"
	"clinic-backend/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestAuth(t *testing.T) (*AuthMiddleware, *jwt.JWTService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: 15 * time.Minute})
	return NewAuthMiddleware(jwtService, client), jwtService, mr
}

// actorEcho answers 200 with the actor's role so tests can see what reached the handler
func actorEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(actor.Role))
	})
}

func TestAuthenticate(t *testing.T) {
	auth, jwtService, mr := newTestAuth(t)
	userID := uuid.New()

	token, _, err := jwtService.GenerateAccessToken(userID, "pat@example.com", entity.RolePatient)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	revokedToken, revokedID, err := jwtService.GenerateAccessToken(userID, "pat@example.com", entity.RolePatient)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	mr.Set(RevokedTokenKeyPrefix+revokedID, "1")
	unknownRole, _, err := jwtService.GenerateAccessToken(userID, "x@example.com", "nurse")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid bearer", "/api/v1/appointments", "Bearer " + token, http.StatusOK},
		{"missing header", "/api/v1/appointments", "", http.StatusUnauthorized},
		{"malformed header", "/api/v1/appointments", "Token " + token, http.StatusUnauthorized},
		{"garbage token", "/api/v1/appointments", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"revoked token", "/api/v1/appointments", "Bearer " + revokedToken, http.StatusUnauthorized},
		{"unknown role", "/api/v1/appointments", "Bearer " + unknownRole, http.StatusUnauthorized},
		{"query token on websocket", "/api/v1/ws?token=" + token, "", http.StatusOK},
		{"query token elsewhere", "/api/v1/appointments?token=" + token, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			auth.Authenticate(actorEcho()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name  string
		actor *entity.Actor
		want  int
	}{
		{"admin allowed", &entity.Actor{UserID: uuid.New(), Role: entity.RoleAdmin}, http.StatusOK},
		{"doctor allowed", &entity.Actor{UserID: uuid.New(), Role: entity.RoleDoctor}, http.StatusOK},
		{"patient refused", &entity.Actor{UserID: uuid.New(), Role: entity.RolePatient}, http.StatusForbidden},
		{"no actor", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(context.Background(), *tt.actor))
			}
			rec := httptest.NewRecorder()

			RequireAdminOrDoctor(actorEcho()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
