package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"souq-backend/pkg/errors"
)

const (
	// PrincipalKey is the gin context key for the authenticated principal
	PrincipalKey = "principal"

	// RoleUser is the default customer role
	RoleUser = "user"
	// RoleAdmin may administer orders
	RoleAdmin = "admin"
)

// Principal is the authenticated caller supplied by the identity service
type Principal struct {
	ID   string
	Role string
}

// Authenticate validates the bearer token and stores the principal on the
// request context. Identity management itself lives in another service; this
// middleware only trusts its signed claims.
func Authenticate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Error(errors.NewUnauthorized("missing bearer token"))
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			c.Error(errors.NewUnauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.Error(errors.NewUnauthorized("malformed token claims"))
			c.Abort()
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			c.Error(errors.NewUnauthorized("token carries no user id"))
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = RoleUser
		}

		c.Set(PrincipalKey, Principal{ID: userID, Role: role})
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.Error(errors.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}

		c.Error(errors.NewForbidden("insufficient role for this operation"))
		c.Abort()
	}
}

// GetPrincipal retrieves the authenticated principal from the gin context
func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
