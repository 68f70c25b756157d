package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AdminHandler    *AdminHandler
	TelegramHandler *TelegramHandler
	RequireAdmin    echo.MiddlewareFunc
	ServiceName     string
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   config.ServiceName,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := e.Group("/api")

	// Telegram calls this; authenticated by the webhook secret header
	api.POST("/telegram/webhook", config.TelegramHandler.Webhook)

	admin := api.Group("/admin", config.RequireAdmin)
	{
		admin.POST("/cycles/run", config.AdminHandler.RunCycle)
		admin.GET("/cycles", config.AdminHandler.ListCycles)
		admin.GET("/cycles/:id", config.AdminHandler.GetCycle)
		admin.GET("/system/health", config.AdminHandler.GetSystemHealth)
	}
}
