package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wayfarer-app/wayfarer-backend/config"
	"github.com/wayfarer-app/wayfarer-backend/handlers"
	"github.com/wayfarer-app/wayfarer-backend/middleware"
)

// Dependencies holds everything required for setting up routes.
type Dependencies struct {
	Config            *config.Config
	PlanHandler       *handlers.PlanHandler
	BookingHandler    *handlers.BookingHandler
	InvitationHandler *handlers.InvitationHandler
	HealthHandler     *handlers.HealthHandler
	Logger            *zap.SugaredLogger
}

// SetupRouter configures and returns the main gin engine with all routes
// defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and metrics routes don't require auth.
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		// The gateway authenticates webhooks with an HMAC signature, not a
		// user token.
		v1.POST("/webhooks/payment", deps.BookingHandler.PaymentWebhookHandler)

		authRoutes := v1.Group("")
		authRoutes.Use(middleware.AuthMiddleware(deps.Config.Server.JwtSecretKey))
		{
			planRoutes := authRoutes.Group("/plans")
			{
				planRoutes.POST("", deps.PlanHandler.CreatePlanHandler)
				planRoutes.GET("", deps.PlanHandler.ListPlansHandler)
				planRoutes.GET("/:id", deps.PlanHandler.GetPlanHandler)
				planRoutes.PATCH("/:id", deps.PlanHandler.UpdatePlanHandler)
				planRoutes.PUT("/:id/itinerary", deps.PlanHandler.ReplaceItineraryHandler)
				planRoutes.DELETE("/:id", deps.PlanHandler.ArchivePlanHandler)

				planRoutes.POST("/:id/invitations", deps.InvitationHandler.InviteHandler)
			}

			invitationRoutes := authRoutes.Group("/invitations")
			{
				invitationRoutes.GET("", deps.InvitationHandler.ListPendingHandler)
				invitationRoutes.POST("/:id/respond", deps.InvitationHandler.RespondHandler)
			}

			bookingRoutes := authRoutes.Group("/bookings")
			{
				bookingRoutes.POST("", deps.BookingHandler.CreateBookingHandler)
				bookingRoutes.GET("/:id", deps.BookingHandler.GetBookingHandler)
				bookingRoutes.POST("/:id/payment-intent", deps.BookingHandler.CreatePaymentIntentHandler)
				bookingRoutes.POST("/:id/cancel", deps.BookingHandler.CancelBookingHandler)
			}

			authRoutes.POST("/payments/:id/reset", deps.BookingHandler.ResetStuckPaymentHandler)
		}
	}

	return r
}
