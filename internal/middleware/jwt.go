package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readmate/readmate/internal/pkg/errcode"
	"github.com/readmate/readmate/internal/pkg/jwt"
	"github.com/readmate/readmate/internal/pkg/response"
)

const (
	ContextSubjectKey = "subject"
	RoleAdmin         = "admin"
)

// AdminAuth guards maintenance routes. Tokens are issued out of band with
// the shared secret; only the admin role passes.
func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if claims.Role != RoleAdmin {
			response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "admin role required")
			c.Abort()
			return
		}
		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
