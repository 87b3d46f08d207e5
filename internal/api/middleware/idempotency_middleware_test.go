package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paymentgw/internal/api/middleware"
	"paymentgw/internal/cache"
	"paymentgw/internal/idempotency"
)

func newIdempotencyRouter(t *testing.T, calls *int) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	svc := idempotency.New(cache.New(mr.Addr(), "", 0))

	router := newEngine()
	router.POST("/x", middleware.Idempotency(svc), func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusCreated, gin.H{"call": *calls})
	})
	return router
}

func TestIdempotency_RequiresKeyHeader(t *testing.T) {
	calls := 0
	router := newIdempotencyRouter(t, &calls)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_SecondCallWithSameKeyReplaysFirstResponse(t *testing.T) {
	calls := 0
	router := newIdempotencyRouter(t, &calls)

	req1 := httptest.NewRequest(http.MethodPost, "/x", nil)
	req1.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusCreated, rec1.Code)
	assert.Equal(t, 1, calls)

	req2 := httptest.NewRequest(http.MethodPost, "/x", nil)
	req2.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusCreated, rec2.Code)
	assert.JSONEq(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, 1, calls) // handler did not run again
}

func TestIdempotency_DifferentKeysRunIndependently(t *testing.T) {
	calls := 0
	router := newIdempotencyRouter(t, &calls)

	for _, key := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(middleware.IdempotencyKeyHeader, key)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
}
