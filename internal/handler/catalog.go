package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

const (
    maxNameLen     = 120
    maxSeatPersons = 50
    maxPriceCents  = 100_000_000
)

// CatalogHandler serves the menu and the seating plan: public reads plus the
// admin CRUD behind /v1/admin.
type CatalogHandler struct {
    Products   *repository.ProductRepo
    Categories *repository.CategoryRepo
    Seats      *repository.SeatRepo
    Log        logrus.FieldLogger
    // OnChange runs after catalog writes so cached analytics that embed
    // product data are refreshed.  May be nil.
    OnChange func(ctx context.Context)
}

func NewCatalogHandler(p *repository.ProductRepo, cat *repository.CategoryRepo, s *repository.SeatRepo, log logrus.FieldLogger, onChange func(context.Context)) *CatalogHandler {
    if p == nil || cat == nil || s == nil {
        panic("nil repository passed to NewCatalogHandler")
    }
    return &CatalogHandler{Products: p, Categories: cat, Seats: s, Log: log, OnChange: onChange}
}

type productReq struct {
    Name       string  `json:"name"`
    PriceCents int64   `json:"price_cents"`
    CategoryID *uint64 `json:"category_id"`
    ImageURL   string  `json:"image_url"`
    IsActive   *bool   `json:"is_active"`
}

func (r productReq) toModel() (model.Product, error) {
    p := model.Product{
        Name:       strings.TrimSpace(r.Name),
        PriceCents: r.PriceCents,
        CategoryID: r.CategoryID,
        ImageURL:   strings.TrimSpace(r.ImageURL),
        IsActive:   r.IsActive == nil || *r.IsActive,
    }
    if p.Name == "" || len(p.Name) > maxNameLen {
        return p, errors.New("name is required (max 120 characters)")
    }
    if p.PriceCents < 0 || p.PriceCents > maxPriceCents {
        return p, errors.New("price_cents must be between 0 and 100000000")
    }
    if p.CategoryID != nil && *p.CategoryID == 0 {
        p.CategoryID = nil
    }
    return p, nil
}

type categoryReq struct {
    Name string `json:"name"`
}

type seatReq struct {
    Label    string `json:"label"`
    Capacity uint32 `json:"capacity"`
    IsActive *bool  `json:"is_active"`
}

func (r seatReq) toModel() (model.Seat, error) {
    s := model.Seat{
        Label:    strings.TrimSpace(r.Label),
        Capacity: r.Capacity,
        IsActive: r.IsActive == nil || *r.IsActive,
    }
    if s.Label == "" || len(s.Label) > 32 {
        return s, errors.New("label is required (max 32 characters)")
    }
    if s.Capacity == 0 || s.Capacity > maxSeatPersons {
        return s, errors.New("capacity must be between 1 and 50")
    }
    return s, nil
}

// ---- products ----

// ListProducts returns the active menu, optionally for ?category_id=.  The
// admin variant (all=true) includes inactive products.
func (h *CatalogHandler) ListProducts(all bool) echo.HandlerFunc {
    return func(c echo.Context) error {
        f := repository.ProductFilter{ActiveOnly: !all}
        if s := c.QueryParam("category_id"); s != "" {
            id, err := strconv.ParseUint(s, 10, 64)
            if err != nil {
                return badRequest(c, "invalid category_id")
            }
            f.CategoryID = id
        }
        ctx, cancel := reqCtx(c)
        defer cancel()
        list, err := h.Products.List(ctx, f)
        if err != nil {
            return fail(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, list)
    }
}

// GetProduct returns one active product.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    p, err := h.Products.Get(ctx, id)
    if err == nil && !p.IsActive {
        err = repository.ErrNotFound
    }
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
    var req productReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    p, err := req.toModel()
    if err != nil {
        return badRequest(c, err.Error())
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Products.Create(ctx, &p); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return badRequest(c, "category not found")
        }
        return fail(c, h.Log, err)
    }
    created, err := h.Products.Get(ctx, p.ID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req productReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    p, err := req.toModel()
    if err != nil {
        return badRequest(c, err.Error())
    }
    p.ID = id
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Products.Update(ctx, &p); err != nil {
        return fail(c, h.Log, err)
    }
    updated, err := h.Products.Get(ctx, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
    return h.deleteWith(c, h.Products.Delete, "product is referenced by orders; deactivate it instead")
}

// ---- categories ----

func (h *CatalogHandler) ListCategories(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    list, err := h.Categories.List(ctx)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
    var req categoryReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    name := strings.TrimSpace(req.Name)
    if name == "" || len(name) > maxNameLen {
        return badRequest(c, "name is required (max 120 characters)")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    cat := model.Category{Name: name}
    if err := h.Categories.Create(ctx, &cat); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "category already exists"})
        }
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) RenameCategory(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req categoryReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    name := strings.TrimSpace(req.Name)
    if name == "" || len(name) > maxNameLen {
        return badRequest(c, "name is required (max 120 characters)")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Categories.Rename(ctx, id, name); err != nil {
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "name": name})
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
    return h.deleteWith(c, h.Categories.Delete, "category is in use")
}

// ---- seats ----

// ListSeats returns active seats; the admin variant (all=true) lists every
// seat.
func (h *CatalogHandler) ListSeats(all bool) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := reqCtx(c)
        defer cancel()
        list, err := h.Seats.List(ctx, !all)
        if err != nil {
            return fail(c, h.Log, err)
        }
        return c.JSON(http.StatusOK, list)
    }
}

func (h *CatalogHandler) CreateSeat(c echo.Context) error {
    var req seatReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    s, err := req.toModel()
    if err != nil {
        return badRequest(c, err.Error())
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Seats.Create(ctx, &s); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "seat label already exists"})
        }
        return fail(c, h.Log, err)
    }
    created, err := h.Seats.Get(ctx, s.ID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateSeat(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    var req seatReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    s, err := req.toModel()
    if err != nil {
        return badRequest(c, err.Error())
    }
    s.ID = id
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Seats.Update(ctx, &s); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "seat label already exists"})
        }
        return fail(c, h.Log, err)
    }
    updated, err := h.Seats.Get(ctx, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, updated)
}

func (h *CatalogHandler) DeleteSeat(c echo.Context) error {
    return h.deleteWith(c, h.Seats.Delete, "seat has bookings; deactivate it instead")
}

// deleteWith runs del for :id.  ErrConflict (row still referenced) is
// reported with inUse.
func (h *CatalogHandler) deleteWith(c echo.Context, del func(context.Context, uint64) error, inUse string) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := del(ctx, id); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": inUse})
        }
        return fail(c, h.Log, err)
    }
    h.changed(ctx)
    return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) changed(ctx context.Context) {
    if h.OnChange != nil {
        h.OnChange(ctx)
    }
}
