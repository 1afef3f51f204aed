package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/metrics"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: the health check and
// the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers authentication routes.  Unauthenticated operations
// live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the browsing, contact and analytics endpoints
// that need no session.  cache wraps the analytics routes.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, msg *handler.MessageHandler, an *handler.AnalyticsHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/products", cat.ListProducts(false))
	g.GET("/products/:id", cat.GetProduct)
	g.GET("/categories", cat.ListCategories)
	g.GET("/seats", cat.ListSeats(false))
	g.POST("/messages", msg.Create)

	g.GET("/salesdynamics", an.SalesDynamics, cache)
	g.GET("/salesdynamics/years", an.SalesYears, cache)
	g.GET("/reservation-trends", an.ReservationTrends, cache)
	g.GET("/product-cms", an.TopProducts, cache)
}
