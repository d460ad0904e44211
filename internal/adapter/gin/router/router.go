package router

import (
	"context"
	"net/http"
	"time"

	"room-user-service/internal/adapter/gin/handler"
	"room-user-service/internal/adapter/gin/middleware"
	"room-user-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Deps groups everything the router mounts.
type Deps struct {
	Users       *handler.UserHandler
	Login       *handler.LoginHandler
	Auth        middleware.CallerResolver
	RateLimiter *middleware.RateLimiter
	// Checks are pinged by /health, keyed by name.
	Checks map[string]HealthChecker
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(d Deps, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(logger.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(d.RateLimiter.Handler())

	router.GET("/health", health(d.Checks, log))

	authenticate := middleware.Authenticate(d.Auth, log)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/login/access-token", d.Login.AccessToken)
		v1.POST("/login/test-token", authenticate, d.Login.TestToken)
		v1.POST("/password-recovery/:email", d.Login.RecoverPassword)
		v1.POST("/reset-password", d.Login.ResetPassword)
		v1.POST("/email-valid", d.Login.ValidateEmail)

		users := v1.Group("/users")
		{
			users.POST("/open", d.Users.CreateUserOpen)

			me := users.Group("/me", authenticate, middleware.RequireActive())
			{
				me.GET("", d.Users.GetMe)
				me.PUT("", d.Users.UpdateMe)
			}

			admin := users.Group("", authenticate, middleware.RequireSuperuser())
			{
				admin.GET("", d.Users.ListUsers)
				admin.POST("", d.Users.CreateUser)
				admin.GET("/:id", d.Users.GetUser)
				admin.PUT("/:id", d.Users.UpdateUser)
				admin.GET("/:id/deactivate", d.Users.DeactivateUser)
				admin.GET("/:id/activate", d.Users.ActivateUser)
			}
		}
	}

	return router
}

func health(checks map[string]HealthChecker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				// connection errors carry hosts and ports
				log.Warn("health check failed", zap.String("check", name), zap.Error(err))
				status = http.StatusServiceUnavailable
				results[name] = "unavailable"
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": "room-user-service",
			"checks":  results,
		})
	}
}
