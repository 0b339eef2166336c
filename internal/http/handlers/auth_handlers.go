package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/branchauth/domain"
)

// Generic messages for enumeration-safe flows. These must stay
// byte-identical across every internal branch of their operation.
const (
	msgVerificationSent = "If this address is registered, you will receive a verification link shortly."
	msgResetSent        = "If this address is registered, you will receive password reset instructions shortly."
)

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc   domain.AuthService
	verifySvc domain.VerificationService
	resetSvc  domain.ResetService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, verifySvc domain.VerificationService, resetSvc domain.ResetService) *AuthHandlers {
	return &AuthHandlers{
		authSvc:   authSvc,
		verifySvc: verifySvc,
		resetSvc:  resetSvc,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Address  string `json:"address" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AddressRequest represents a request keyed by identity address
type AddressRequest struct {
	Address string `json:"address" binding:"required,email"`
}

// TokenRequest represents a token redemption request
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResetPasswordRequest represents a password reset redemption
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// Login handles credential checks
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Address, req.Password, requestMeta(c))
	if err != nil {
		h.renderLoginError(c, err)
		return
	}

	respond(c, http.StatusOK, true, "Login successful", "", gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_at": result.ExpiresAt,
		"principal": gin.H{
			"id":      result.Principal.ID,
			"address": result.Principal.IdentityAddress,
		},
	})
}

func (h *AuthHandlers) renderLoginError(c *gin.Context, err error) {
	var locked *domain.AccountLockedError
	var limited *domain.RateLimitedError

	switch {
	case domain.IsValidation(err):
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
	case errors.As(err, &limited):
		c.Header("Retry-After", retryAfterSeconds(limited.RetryAfter))
		respond(c, http.StatusTooManyRequests, false, "Too many attempts, try again later", "rate_limited", nil)
	case errors.Is(err, domain.ErrAccountUnverified):
		respond(c, http.StatusForbidden, false, "Please verify your email address before logging in", "account_unverified", nil)
	case errors.As(err, &locked):
		c.Header("Retry-After", retryAfterSeconds(locked.RetryAfter))
		respond(c, http.StatusLocked, false, "Account temporarily locked, try again later", "account_locked", nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		respond(c, http.StatusUnauthorized, false, "Invalid credentials", "invalid_credentials", nil)
	default:
		respond(c, http.StatusInternalServerError, false, "Login failed", "internal_error", nil)
	}
}

// Logout revokes the presented session token. Always reports success.
func (h *AuthHandlers) Logout(c *gin.Context) {
	_ = h.authSvc.Logout(c.Request.Context(), bearerToken(c))
	respond(c, http.StatusOK, true, "Logged out successfully", "", nil)
}

// Me returns the principal resolved from the presented session token
func (h *AuthHandlers) Me(c *gin.Context) {
	value, exists := c.Get("principal")
	if !exists {
		respond(c, http.StatusUnauthorized, false, "Not authenticated", "invalid_token", nil)
		return
	}
	p := value.(*domain.Principal)
	respond(c, http.StatusOK, true, "", "", gin.H{
		"id":             p.ID,
		"address":        p.IdentityAddress,
		"email_verified": p.EmailVerified,
		"last_login_at":  p.LastLoginAt,
		"created_at":     p.CreatedAt,
	})
}

// InitiateVerification starts the email verification flow
func (h *AuthHandlers) InitiateVerification(c *gin.Context) {
	h.handleVerificationRequest(c, h.verifySvc.Initiate)
}

// ResendVerification re-issues a verification token
func (h *AuthHandlers) ResendVerification(c *gin.Context) {
	h.handleVerificationRequest(c, h.verifySvc.Resend)
}

func (h *AuthHandlers) handleVerificationRequest(c *gin.Context, op func(context.Context, string, domain.RequestMeta) error) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		return
	}

	if err := op(c.Request.Context(), req.Address, requestMeta(c)); err != nil {
		h.renderEnumerationSafeError(c, err)
		return
	}
	respond(c, http.StatusOK, true, msgVerificationSent, "", nil)
}

// RedeemVerification consumes a verification token
func (h *AuthHandlers) RedeemVerification(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		return
	}

	result, err := h.verifySvc.Redeem(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case domain.IsValidation(err):
			respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		case errors.Is(err, domain.ErrTokenExpired):
			respond(c, http.StatusBadRequest, false, "Verification link expired, please request a new one", "token_expired", nil)
		case errors.Is(err, domain.ErrTokenInvalid):
			respond(c, http.StatusBadRequest, false, "Invalid verification link", "token_invalid", nil)
		default:
			respond(c, http.StatusInternalServerError, false, "Verification failed", "internal_error", nil)
		}
		return
	}

	message := "Email address verified successfully"
	if result.AlreadyVerified {
		message = "Email address already verified"
	}
	respond(c, http.StatusOK, true, message, "", nil)
}

// ForgotPassword starts the password reset flow
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		return
	}

	if err := h.resetSvc.Request(c.Request.Context(), req.Address, requestMeta(c)); err != nil {
		h.renderEnumerationSafeError(c, err)
		return
	}
	respond(c, http.StatusOK, true, msgResetSent, "", nil)
}

// ResetPassword redeems a reset token with a new password
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
		return
	}

	err := h.resetSvc.Redeem(c.Request.Context(), req.Token, req.NewPassword, requestMeta(c))
	if err != nil {
		switch {
		case domain.IsValidation(err):
			respond(c, http.StatusBadRequest, false, "Password does not meet the minimum requirements", "validation_failed", nil)
		case errors.Is(err, domain.ErrTokenExpired):
			respond(c, http.StatusBadRequest, false, "Invalid or expired token", "token_expired", nil)
		case errors.Is(err, domain.ErrTokenInvalidOrUsed):
			respond(c, http.StatusBadRequest, false, "Invalid or expired token", "token_invalid", nil)
		default:
			respond(c, http.StatusInternalServerError, false, "Password reset failed", "internal_error", nil)
		}
		return
	}
	respond(c, http.StatusOK, true, "Password updated successfully", "", nil)
}

func (h *AuthHandlers) renderEnumerationSafeError(c *gin.Context, err error) {
	var limited *domain.RateLimitedError
	switch {
	case domain.IsValidation(err):
		respond(c, http.StatusBadRequest, false, "Invalid request", "validation_failed", nil)
	case errors.As(err, &limited):
		c.Header("Retry-After", retryAfterSeconds(limited.RetryAfter))
		respond(c, http.StatusTooManyRequests, false, "Too many requests, try again later", "rate_limited", nil)
	case errors.Is(err, domain.ErrNotifierFailed):
		respond(c, http.StatusBadGateway, false, "Could not send message, please try again", "message_not_sent", nil)
	default:
		respond(c, http.StatusInternalServerError, false, "Request failed", "internal_error", nil)
	}
}

func respond(c *gin.Context, status int, success bool, message, reason string, data gin.H) {
	body := gin.H{"success": success}
	if message != "" {
		body["message"] = message
	}
	if reason != "" {
		body["reason"] = reason
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func requestMeta(c *gin.Context) domain.RequestMeta {
	return domain.RequestMeta{
		Origin:     c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		DeviceInfo: c.GetHeader("X-Device-Info"),
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
