package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamnext/accounts-api/pkg/helpers"
	"github.com/teamnext/accounts-api/pkg/response"
)

// Context keys set by BearerAuth.
const (
	CtxUsernameKey = "username"
	CtxTokenKey    = "token"
)

// BearerAuth validates the Authorization bearer token (signature, expiry,
// revocation) and injects the subject username and the raw token into the
// Gin context. Identity is derived from the token alone.
func BearerAuth(tokens *helpers.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := tokens.VerifyToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "could not validate user", nil)
			c.Abort()
			return
		}
		c.Set(CtxUsernameKey, claims.Username())
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}
