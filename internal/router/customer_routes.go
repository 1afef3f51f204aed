package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/handler"
	"github.com/iliyamo/cafe-ordering/internal/middleware"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// kindPaths maps each request kind to its collection path.  /orders also
// serves as the generic path for reads, item changes and cancellation of
// any kind.
var kindPaths = []struct {
	path string
	kind model.Kind
}{
	{"/orders", model.KindOrder},
	{"/reservations", model.KindReservation},
	{"/preorders", model.KindPreOrder},
	{"/walkins", model.KindWalkIn},
}

// RegisterCustomer registers the endpoints of signed-in users under /v1.
// Any role may place and manage its own requests; ownership is enforced by
// the lifecycle engine.
func RegisterCustomer(e *echo.Echo, r *handler.RequestHandler, cart *handler.CartHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	for _, kp := range kindPaths {
		g.POST(kp.path, r.Create(kp.kind))
		if kp.kind == model.KindOrder {
			g.GET(kp.path, r.ListMine("")) // ?kind= filters
		} else {
			g.GET(kp.path, r.ListMine(kp.kind))
		}
		g.GET(kp.path+"/:id", r.Get)
		g.POST(kp.path+"/:id/items", r.AddItems)
		g.DELETE(kp.path+"/:id", r.Cancel)
	}

	g.GET("/cart", cart.Get)
	g.POST("/cart", cart.Add)
	g.POST("/cart/add", cart.Add)
	g.POST("/cart/checkout", cart.Checkout)
	g.PUT("/cart/:itemId", cart.SetQuantity)
	g.DELETE("/cart/:itemId", cart.Remove)
	g.DELETE("/cart", cart.Clear)
}
