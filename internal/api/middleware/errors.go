package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
)

// RespondError maps an error returned by a service into the HTTP response:
// an *apperrors.AppError becomes {code, message} at its own Status, with a
// Retry-After header when set; anything else is treated as an unclassified
// internal error.
func RespondError(c *gin.Context, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		ae = apperrors.Internal(err)
	}
	if ae.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(ae.RetryAfter))
	}
	c.AbortWithStatusJSON(ae.Status, gin.H{
		"error": gin.H{
			"code":    ae.Code,
			"message": ae.Message,
		},
	})
}
