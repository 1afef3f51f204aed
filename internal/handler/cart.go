package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/middleware"
    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/service"
)

// CartHandler exposes the caller's cart.
type CartHandler struct {
    Carts    *service.Carts
    Log      logrus.FieldLogger
    OnChange func(ctx context.Context)
}

func NewCartHandler(carts *service.Carts, log logrus.FieldLogger, onChange func(ctx context.Context)) *CartHandler {
    return &CartHandler{Carts: carts, Log: log, OnChange: onChange}
}

type cartLineReq struct {
    ProductID uint64 `json:"product_id"`
    Quantity  int    `json:"quantity"`
}

type checkoutReq struct {
    Kind      string     `json:"kind"`
    SeatID    *uint64    `json:"seat_id"`
    StartTime *time.Time `json:"start_time"`
    Notes     string     `json:"notes"`
}

// Get returns the cart with line totals.
func (h *CartHandler) Get(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    cart, err := h.Carts.Get(ctx, middleware.Identity(c))
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, cart)
}

// Add increments a line by quantity (default 1).
func (h *CartHandler) Add(c echo.Context) error {
    var req cartLineReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    if req.Quantity == 0 {
        req.Quantity = 1
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    cart, err := h.Carts.Increment(ctx, middleware.Identity(c), req.ProductID, req.Quantity)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, cart)
}

// SetQuantity overwrites the quantity of the line for :itemId.
func (h *CartHandler) SetQuantity(c echo.Context) error {
    productID, ok := pathID(c, "itemId")
    if !ok {
        return badRequest(c, "invalid item id")
    }
    var req cartLineReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    cart, err := h.Carts.SetQuantity(ctx, middleware.Identity(c), productID, req.Quantity)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, cart)
}

// Remove drops the line for :itemId.
func (h *CartHandler) Remove(c echo.Context) error {
    productID, ok := pathID(c, "itemId")
    if !ok {
        return badRequest(c, "invalid item id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    cart, err := h.Carts.Remove(ctx, middleware.Identity(c), productID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, cart)
}

// Clear empties the cart.
func (h *CartHandler) Clear(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Carts.Clear(ctx, middleware.Identity(c)); err != nil {
        return fail(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Checkout turns the cart into an order or pre-order.
func (h *CartHandler) Checkout(c echo.Context) error {
    var req checkoutReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    in := service.CheckoutInput{SeatID: req.SeatID, StartTime: req.StartTime, Notes: req.Notes}
    if req.Kind != "" {
        k, ok := model.ParseKind(req.Kind)
        if !ok {
            return badRequest(c, "unknown kind")
        }
        in.Kind = k
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    out, err := h.Carts.Checkout(ctx, middleware.Identity(c), in)
    if err != nil {
        return fail(c, h.Log, err)
    }
    if h.OnChange != nil {
        h.OnChange(ctx)
    }
    return c.JSON(http.StatusCreated, out)
}
