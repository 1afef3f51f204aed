package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/service"
)

// AnalyticsHandler serves the dashboard figures.  Responses are cached by
// the Redis cache middleware in front of these routes.
type AnalyticsHandler struct {
    Analytics *service.Analytics
    Log       logrus.FieldLogger
}

func NewAnalyticsHandler(a *service.Analytics, log logrus.FieldLogger) *AnalyticsHandler {
    return &AnalyticsHandler{Analytics: a, Log: log}
}

// SalesDynamics returns twelve monthly totals for ?year= (default: the
// current UTC year).
func (h *AnalyticsHandler) SalesDynamics(c echo.Context) error {
    year := time.Now().UTC().Year()
    if s := c.QueryParam("year"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil {
            return badRequest(c, "year must be a number")
        }
        year = n
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    out, err := h.Analytics.MonthlySales(ctx, year)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}

// SalesYears lists the years with recorded sales, newest first.
func (h *AnalyticsHandler) SalesYears(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    out, err := h.Analytics.AvailableSalesYears(ctx)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}

// ReservationTrends compares monthly reservation counts of this year and
// last year.
func (h *AnalyticsHandler) ReservationTrends(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    out, err := h.Analytics.ReservationTrends(ctx)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}

// TopProducts returns the ?limit= most ordered products.
func (h *AnalyticsHandler) TopProducts(c echo.Context) error {
    n, ok := queryInt(c, "limit", service.DefaultTopProducts)
    if !ok {
        return badRequest(c, "limit must be a number")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    out, err := h.Analytics.TopProducts(ctx, n)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}
