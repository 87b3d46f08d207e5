package middleware

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/idempotency"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// bodyCapture buffers the handler's response so a successful attempt's
// exact status/body can be cached for verbatim replay.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency enforces the client-supplied Idempotency-Key protocol: a
// COMPLETED key replays its cached response, a PROCESSING key is rejected
// as a duplicate in flight, and a fresh key proceeds and is recorded on
// the way out. Required on every deposit/withdrawal creation route.
func Idempotency(svc *idempotency.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			RespondError(c, apperrors.Validation("Idempotency-Key header is required"))
			return
		}

		ctx := c.Request.Context()
		state, record, err := svc.CheckExisting(ctx, key)
		if err != nil {
			RespondError(c, apperrors.Internal(err))
			return
		}

		switch state {
		case idempotency.StateCompleted:
			for k, v := range record.Headers {
				c.Header(k, v)
			}
			c.Data(record.StatusCode, "application/json", record.Body)
			c.Abort()
			return
		case idempotency.StateProcessing:
			RespondError(c, apperrors.DuplicateRequest(5))
			return
		}

		acquired, err := svc.AcquireLock(ctx, key)
		if err != nil {
			RespondError(c, apperrors.Internal(err))
			return
		}
		if !acquired {
			RespondError(c, apperrors.DuplicateRequest(5))
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture

		func() {
			defer func() {
				if r := recover(); r != nil {
					_ = svc.ReleaseLock(ctx, key)
					panic(r)
				}
			}()
			c.Next()
		}()

		status := capture.Status()
		if status >= 200 && status < 300 {
			_ = svc.SaveResponse(ctx, key, idempotency.Record{
				StatusCode: status,
				Body:       json.RawMessage(capture.buf.Bytes()),
			})
		} else {
			_ = svc.ReleaseLock(ctx, key)
		}
	}
}
