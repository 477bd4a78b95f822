package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/utils"
)

// AccessClaims are the JWT claims issued by the auth service for API access
// tokens. The pipeline's surface only needs identity, role and the owning
// project.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ProjectID string `json:"project_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	config *config.Config
}

func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{config: cfg}
}

// RequireAuth validates the bearer token (or access_token cookie) and loads
// the claims into the request context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if strings.HasPrefix(authHeader, "Bearer ") {
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := a.validateToken(tokenString)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("project_id", claims.ProjectID)
		c.Next()
	}
}

// RequireRole allows only the listed roles past.
func (a *AuthMiddleware) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			utils.RespondWithUnauthorized(c, "User role not found")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.RespondWithError(c, 403, "forbidden", "Insufficient permissions", gin.H{
			"required_roles": allowedRoles,
			"user_role":      role,
		})
		c.Abort()
	}
}

func (a *AuthMiddleware) validateToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.config.AccessSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired")
	}
	return claims, nil
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(c *gin.Context) string {
	if v, exists := c.Get("user_id"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRole retrieves the authenticated user's role from context.
func GetRole(c *gin.Context) string {
	if v, exists := c.Get("role"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetProjectID retrieves the authenticated user's project from context.
func GetProjectID(c *gin.Context) string {
	if v, exists := c.Get("project_id"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
