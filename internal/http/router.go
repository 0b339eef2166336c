package httpx

import (
	"github.com/gin-gonic/gin"

	"github.com/you/branchauth/internal/http/handlers"
	"github.com/you/branchauth/internal/http/middleware"
)

func BuildRouter(ah *handlers.AuthHandlers, sessmw *middleware.SessionMW) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/auth")
	auth.POST("/login", ah.Login)
	// Logout is idempotent and always reports success, so it takes the
	// bearer token directly instead of going through the session guard.
	auth.POST("/logout", ah.Logout)
	auth.POST("/verify/initiate", ah.InitiateVerification)
	auth.POST("/verify/redeem", ah.RedeemVerification)
	auth.POST("/verify/resend", ah.ResendVerification)
	auth.POST("/password/forgot", ah.ForgotPassword)
	auth.POST("/password/reset", ah.ResetPassword)

	v := r.Group("/auth").Use(sessmw.WithSession())
	v.GET("/me", ah.Me)

	return r
}
