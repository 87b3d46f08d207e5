package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/auth"
)

const userIDKey = "user_id"

// Auth requires a valid "Authorization: Bearer <token>" header, parses it
// with signer, and stores the subject user id in the Gin context for
// handlers to read via UserID.
func Auth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			RespondError(c, apperrors.Unauthorized("missing bearer token"))
			return
		}

		claims, err := signer.Parse(strings.TrimPrefix(header, prefix))
		if err != nil {
			RespondError(c, apperrors.Unauthorized("invalid or expired token"))
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	id, _ := v.(string)
	return id
}
