// Package api assembles the HTTP surface: middleware, routes, and the
// observability endpoints.
package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/calebmorten/shiftrelief/internal/app/maintenance"
	iauth "github.com/calebmorten/shiftrelief/internal/auth"
	"github.com/calebmorten/shiftrelief/internal/handlers"
	"github.com/calebmorten/shiftrelief/internal/middleware"
	"github.com/calebmorten/shiftrelief/internal/realtime"
	"github.com/calebmorten/shiftrelief/internal/services"
)

// Deps bundles the long-lived services the router exposes.
type Deps struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Coordination  *services.CoordinationService
	Matching      *services.MatchingService
	Directory     *services.DirectoryService
	Availability  *services.AvailabilityService
	Notifications *services.NotificationService
	Hub           *realtime.Hub
	Sweeper       *maintenance.Sweeper
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil || deps.JWT == nil {
		return nil, errors.New("api: db and jwt service are required")
	}

	authHandler, err := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Directory)
	if err != nil {
		return nil, err
	}
	requestHandler, err := handlers.NewRequestHandler(deps.Coordination, deps.Matching)
	if err != nil {
		return nil, err
	}
	availabilityHandler, err := handlers.NewAvailabilityHandler(deps.Availability)
	if err != nil {
		return nil, err
	}
	notificationHandler, err := handlers.NewNotificationHandler(deps.Notifications, deps.Hub)
	if err != nil {
		return nil, err
	}
	workerHandler, err := handlers.NewWorkerHandler(deps.Directory)
	if err != nil {
		return nil, err
	}
	systemHandler, err := handlers.NewSystemHandler(deps.Sweeper)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.JWT))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/workers", workerHandler.List)

		requests := authed.Group("/requests")
		{
			requests.GET("", requestHandler.List)
			requests.POST("", requestHandler.Create)
			requests.GET("/:id", requestHandler.Detail)
			requests.GET("/:id/matches", requestHandler.Matches)
			requests.POST("/:id/volunteer", requestHandler.Volunteer)
			requests.DELETE("/:id/volunteer", requestHandler.WithdrawVolunteer)
			requests.POST("/:id/nominate", requestHandler.Nominate)
			requests.DELETE("/:id/nominate", requestHandler.CancelNomination)
			requests.POST("/:id/nomination/confirm", requestHandler.ConfirmNomination)
			requests.POST("/:id/nomination/decline", requestHandler.DeclineNomination)
			requests.POST("/:id/accept", requestHandler.AcceptVolunteer)
			requests.POST("/:id/withdraw-accepted", requestHandler.WithdrawAccepted)
			requests.DELETE("/:id", requestHandler.Cancel)
		}

		availability := authed.Group("/availability")
		{
			availability.GET("", availabilityHandler.List)
			availability.PUT("", availabilityHandler.Set)
			availability.DELETE("", availabilityHandler.Remove)
		}

		notifications := authed.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
			notifications.GET("/stream", notificationHandler.Stream)
		}

		authed.POST("/system/sweep", systemHandler.RunSweep)
	}

	return router, nil
}
