package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mlowery/crewdesk/internal/auth"
	"github.com/mlowery/crewdesk/internal/handlers"
	"github.com/mlowery/crewdesk/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	otpLimit := middleware.RateLimitByIP(middleware.DefaultOTPRateLimit())

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", authHandler.Register)
	router.With(otpLimit).Post("/auth/verify-otp", authHandler.VerifyOTP)
	router.With(otpLimit).Post("/auth/resend-otp", authHandler.ResendOTP)
	router.With(authLimit).Post("/auth/login", authHandler.Login)
	router.With(authLimit).Post("/auth/change-password", authHandler.ChangePassword)
	router.With(authLimit).Post("/auth/check-email", authHandler.CheckEmail)
	router.With(authLimit).Post("/auth/check-admin", authHandler.CheckAdmin)

	// Protected routes - bearer token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Put("/auth/update-profile", authHandler.UpdateProfile)
	})
}
