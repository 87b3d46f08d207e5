package handlers

import (
	"github.com/gin-gonic/gin"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/api/middleware"
)

func middlewareRespondError(c *gin.Context, err error) {
	middleware.RespondError(c, err)
}

func middlewareRespondValidation(c *gin.Context, message string) {
	middleware.RespondError(c, apperrors.Validation(message))
}
