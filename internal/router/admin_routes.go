package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Requests  *handler.RequestHandler
	Catalog   *handler.CatalogHandler
	Messages  *handler.MessageHandler
	Customers *handler.CustomerHandler
}

// RegisterAdmin registers back-office endpoints under /v1/admin.  Staff may
// list requests and move them along the lifecycle; everything else is
// ADMIN only.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	staff := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
	)
	staff.GET("/orders", h.Requests.AdminList)
	staff.GET("/orders/:id", h.Requests.Get)
	staff.PATCH("/orders/:id/status", h.Requests.SetStatus)

	admin := staff.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.DELETE("/orders/:id", h.Requests.Delete)

	// ---- Products ----
	admin.GET("/products", h.Catalog.ListProducts(true))
	admin.POST("/products", h.Catalog.CreateProduct)
	admin.PUT("/products/:id", h.Catalog.UpdateProduct)
	admin.DELETE("/products/:id", h.Catalog.DeleteProduct)

	// ---- Categories ----
	admin.POST("/categories", h.Catalog.CreateCategory)
	admin.PUT("/categories/:id", h.Catalog.RenameCategory)
	admin.DELETE("/categories/:id", h.Catalog.DeleteCategory)

	// ---- Seats ----
	admin.GET("/seats", h.Catalog.ListSeats(true))
	admin.POST("/seats", h.Catalog.CreateSeat)
	admin.PUT("/seats/:id", h.Catalog.UpdateSeat)
	admin.PATCH("/seats/:id", h.Catalog.UpdateSeat) // alias for clients that use PATCH
	admin.DELETE("/seats/:id", h.Catalog.DeleteSeat)

	// ---- Messages ----
	admin.GET("/messages", h.Messages.List)
	admin.PATCH("/messages/:id/read", h.Messages.MarkRead)
	admin.DELETE("/messages/:id", h.Messages.Delete)

	admin.GET("/customers", h.Customers.List)
}
