package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/service"
)

const userKey = "currentUser"

// Auth validates the Authorization header and attaches the account.
type Auth struct {
	AuthService *service.AuthService
}

// ValidateJWT ensures the request carries a valid bearer access token.
func (m *Auth) ValidateJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Bearer token required."})
		return
	}

	user, err := m.AuthService.CurrentUser(c.Request.Context(), parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Invalid access token."})
		return
	}

	c.Set(userKey, user)
	c.Next()
}

// RequireRoles rejects authenticated requests whose role is not listed.
// It must run after ValidateJWT.
func (m *Auth) RequireRoles(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Authentication required."})
			return
		}
		for _, name := range names {
			if user.RoleName == name {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Insufficient permissions."})
	}
}

// GetUser exposes the authenticated account to handlers.
func GetUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(userKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}
