package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role string, expiry time.Duration) string {
	t.Helper()
	claims := AccessClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func testRouter(allowedRoles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := NewAuthMiddleware(&config.Config{AccessSecret: testSecret})
	r := gin.New()
	group := r.Group("/", auth.RequireAuth())
	if len(allowedRoles) > 0 {
		group.Use(auth.RequireRole(allowedRoles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetRole(c)})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		cookie     string
		wantStatus int
	}{
		{"valid bearer token", "Bearer " + signToken(t, models.RoleStudent, time.Hour), "", http.StatusOK},
		{"missing token", "", "", http.StatusUnauthorized},
		{"malformed token", "Bearer not.a.jwt", "", http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, models.RoleStudent, -time.Hour), "", http.StatusUnauthorized},
		{"cookie fallback", "", signToken(t, models.RoleStudent, time.Hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRouter()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	claims := AccessClaims{UserID: "user-1", Role: models.RoleStudent}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	r := testRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		allowed    []string
		wantStatus int
	}{
		{"student allowed", models.RoleStudent, []string{models.RoleStudent}, http.StatusOK},
		{"coordinator among several", models.RoleCoordinator, []string{models.RoleAdviser, models.RoleCoordinator}, http.StatusOK},
		{"student blocked from coordinator route", models.RoleStudent, []string{models.RoleCoordinator}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRouter(tt.allowed...)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, tt.role, time.Hour))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
