package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/cache"
)

// RateLimit enforces a per-user sliding-window cap of limit requests per
// window on the route it's attached to, keyed on (route name, user id).
// Grounded on internal/cache.Client.SlidingWindowCount, the same primitive
// deveshjha247-Web3AirdropOS's locks.go builds its fencing on, applied here
// to request counting instead of lock ownership.
func RateLimit(c *cache.Client, routeName string, limit int, window time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := UserID(ctx)
		key := fmt.Sprintf("ratelimit:%s:%s", routeName, userID)

		count, err := c.SlidingWindowCount(ctx.Request.Context(), key, time.Now(), window)
		if err != nil {
			RespondError(ctx, apperrors.Internal(err))
			return
		}
		if count > int64(limit) {
			RespondError(ctx, apperrors.RateLimited(int(window.Seconds())))
			return
		}
		ctx.Next()
	}
}
