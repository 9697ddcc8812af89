package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vn.io.arda/notifeed/internal/config"
	"vn.io.arda/notifeed/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, auth config.AuthConfig, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	}))

	// No auth required
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API, requires authentication
	v1 := e.Group("/feed")
	v1.Use(mw.JWTAuth(auth.JWTSecret, auth.Issuer))

	v1.GET("", h.Feed)
	v1.DELETE("", h.ClearAll)
	v1.GET("/badge", h.Badge)
	v1.GET("/panel", h.Panel)
	v1.POST("/read-all", h.MarkAllRead)
	v1.POST("/local", h.PushLocal)
	v1.POST("/logout", h.Logout)
	v1.GET("/toasts", h.Toasts)
	v1.DELETE("/toasts/:id", h.DismissToast)
	v1.PATCH("/:id/read", h.MarkRead)
	v1.DELETE("/:id", h.Dismiss)

	// SSE endpoint
	v1.GET("/stream", h.Stream)

	return e
}
