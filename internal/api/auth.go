package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careloop/careline/internal/auth"
	"github.com/careloop/careline/internal/repository"
)

// AuthHandler issues tokens — the only public endpoint besides health.
// Account provisioning itself (clinic onboarding, patient signup) belongs
// to the admissions system; this service only authenticates what exists.
type AuthHandler struct {
	accounts  repository.AccountRepository
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthHandler(accounts repository.AccountRepository, jwtSecret string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, jwtSecret: jwtSecret, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accounts.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to look up account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// One generic message for "no such account" and "wrong password" —
	// a distinct answer would tell an attacker which emails exist.
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := auth.GenerateToken(account, h.jwtSecret, 24*time.Hour)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token})
}
