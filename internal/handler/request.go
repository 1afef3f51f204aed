package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/middleware"
    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/service"
)

// RequestHandler exposes orders, reservations, pre-orders and walk-ins.
// All four kinds share one set of handlers; the route decides the kind.
type RequestHandler struct {
    Lifecycle *service.Lifecycle
    Log       logrus.FieldLogger
    // OnChange runs after a status change or delete, e.g. to purge cached
    // analytics.  May be nil.
    OnChange func(ctx context.Context)
}

func NewRequestHandler(l *service.Lifecycle, log logrus.FieldLogger, onChange func(context.Context)) *RequestHandler {
    return &RequestHandler{Lifecycle: l, Log: log, OnChange: onChange}
}

type createRequestReq struct {
    Items     []service.ItemInput `json:"items"`
    SeatID    *uint64             `json:"seat_id"`
    StartTime *time.Time          `json:"start_time"`
    EndTime   *time.Time          `json:"end_time"`
    Notes     string              `json:"notes"`
}

type addItemsReq struct {
    Items []service.ItemInput `json:"items"`
}

type statusReq struct {
    Status string `json:"status"`
}

// Create places a new request of the given kind.
func (h *RequestHandler) Create(kind model.Kind) echo.HandlerFunc {
    return func(c echo.Context) error {
        var req createRequestReq
        if err := c.Bind(&req); err != nil {
            return badRequest(c, "invalid body")
        }
        ctx, cancel := reqCtx(c)
        defer cancel()

        out, err := h.Lifecycle.Create(ctx, middleware.Identity(c), service.CreateInput{
            Kind:      kind,
            Items:     req.Items,
            SeatID:    req.SeatID,
            StartTime: req.StartTime,
            EndTime:   req.EndTime,
            Notes:     req.Notes,
        })
        if err != nil {
            return fail(c, h.Log, err)
        }
        h.changed(ctx)
        return c.JSON(http.StatusCreated, out)
    }
}

// ListMine lists the caller's requests.  On the generic route ?kind= picks
// a kind; kind-specific routes pass their own.
func (h *RequestHandler) ListMine(kind model.Kind) echo.HandlerFunc {
    return func(c echo.Context) error {
        k := kind
        if k == "" && c.QueryParam("kind") != "" {
            parsed, ok := model.ParseKind(c.QueryParam("kind"))
            if !ok {
                return badRequest(c, "unknown kind")
            }
            k = parsed
        }
        ctx, cancel := reqCtx(c)
        defer cancel()

        list, err := h.Lifecycle.ListMine(ctx, middleware.Identity(c), k)
        if err != nil {
            return fail(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, list)
    }
}

// Get returns one request visible to the caller.
func (h *RequestHandler) Get(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    out, err := h.Lifecycle.Get(ctx, middleware.Identity(c), id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}

// AddItems appends lines to an open request.
func (h *RequestHandler) AddItems(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req addItemsReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    out, err := h.Lifecycle.AddItems(ctx, middleware.Identity(c), id, req.Items)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, out)
}

// Cancel cancels a pending request and returns it.
func (h *RequestHandler) Cancel(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    out, err := h.Lifecycle.Cancel(ctx, middleware.Identity(c), id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, out)
}

// AdminList lists every request, filtered by ?kind=, ?status=, ?limit= and
// ?offset=.
func (h *RequestHandler) AdminList(c echo.Context) error {
    var f service.ListFilter
    if s := c.QueryParam("kind"); s != "" {
        k, ok := model.ParseKind(s)
        if !ok {
            return badRequest(c, "unknown kind")
        }
        f.Kind = k
    }
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseStatus(s)
        if !ok {
            return badRequest(c, "unknown status")
        }
        f.Status = st
    }
    var ok bool
    if f.Limit, ok = queryInt(c, "limit", 0); !ok || f.Limit < 0 {
        return badRequest(c, "invalid limit")
    }
    if f.Offset, ok = queryInt(c, "offset", 0); !ok || f.Offset < 0 {
        return badRequest(c, "invalid offset")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    list, err := h.Lifecycle.ListAll(ctx, middleware.Identity(c), f)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, list)
}

// SetStatus moves a request along the lifecycle.
func (h *RequestHandler) SetStatus(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req statusReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Status) == "" {
        return badRequest(c, "status required")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    out, err := h.Lifecycle.Transition(ctx, middleware.Identity(c), id, model.Status(req.Status))
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, out)
}

// Delete hard-deletes a request.
func (h *RequestHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()

    if err := h.Lifecycle.Delete(ctx, middleware.Identity(c), id); err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.NoContent(http.StatusNoContent)
}

func (h *RequestHandler) changed(ctx context.Context) {
    if h.OnChange != nil {
        h.OnChange(ctx)
    }
}
