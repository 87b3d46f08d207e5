package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"paymentgw/internal/apperrors"
	"paymentgw/internal/app"
	"paymentgw/internal/domain"
	"paymentgw/internal/pkg/logging"
	"paymentgw/internal/store"
	"paymentgw/internal/validation"
)

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	WebhookURL string `json:"webhook_url"`
}

func MakeRegisterHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middlewareRespondValidation(c, "invalid request body")
			return
		}
		if err := validation.ValidateEmail(req.Email); err != nil {
			middlewareRespondValidation(c, err.Error())
			return
		}
		if err := validation.ValidatePassword(req.Password); err != nil {
			middlewareRespondValidation(c, err.Error())
			return
		}
		if err := validation.ValidateWebhookURL(req.WebhookURL); err != nil {
			middlewareRespondValidation(c, err.Error())
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		user := &domain.User{
			ID:           uuid.New().String(),
			Email:        req.Email,
			PasswordHash: string(hash),
			IsActive:     true,
			WebhookURL:   req.WebhookURL,
		}
		ctx := c.Request.Context()
		if err := s.Users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				middlewareRespondError(c, apperrors.Validation("an account with this email already exists"))
				return
			}
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		account := &domain.Account{
			ID:       uuid.New().String(),
			UserID:   user.ID,
			Currency: "USD",
		}
		if err := s.Accounts.Create(ctx, account); err != nil {
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		logging.Info("user registered", map[string]interface{}{"user_id": user.ID})
		c.JSON(http.StatusCreated, gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"account_id": account.ID,
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func MakeLoginHandler(s *app.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			middlewareRespondValidation(c, "invalid request body")
			return
		}

		ctx := c.Request.Context()
		user, err := s.Users.GetByEmail(ctx, req.Email)
		if err != nil {
			middlewareRespondError(c, apperrors.Unauthorized("invalid email or password"))
			return
		}
		if !user.IsActive {
			middlewareRespondError(c, apperrors.Unauthorized("account is disabled"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			middlewareRespondError(c, apperrors.Unauthorized("invalid email or password"))
			return
		}

		token, err := s.Signer.Issue(user.ID)
		if err != nil {
			middlewareRespondError(c, apperrors.Internal(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "Bearer"})
	}
}
