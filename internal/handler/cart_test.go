package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "sync"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/repository"
    "github.com/iliyamo/cafe-ordering/internal/service"
)

type memCart struct {
    mu    sync.Mutex
    menu  menu
    lines map[uint64]map[uint64]int
}

func (m *memCart) line(userID uint64) map[uint64]int {
    if m.lines[userID] == nil {
        m.lines[userID] = map[uint64]int{}
    }
    return m.lines[userID]
}

func (m *memCart) Increment(_ context.Context, userID, productID uint64, delta int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    line := m.line(userID)
    line[productID] += delta
    if line[productID] > repository.MaxItemQuantity {
        line[productID] = repository.MaxItemQuantity
    }
    return nil
}

func (m *memCart) SetQuantity(_ context.Context, userID, productID uint64, qty int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.line(userID)[productID] = qty
    return nil
}

func (m *memCart) Remove(_ context.Context, userID, productID uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.line(userID), productID)
    return nil
}

func (m *memCart) Clear(_ context.Context, userID uint64) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.lines, userID)
    return nil
}

func (m *memCart) List(_ context.Context, userID uint64) ([]model.CartItem, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.CartItem{}
    for id, q := range m.lines[userID] {
        p := m.menu[id]
        out = append(out, model.CartItem{ProductID: id, Name: p.Name, Quantity: q,
            UnitPriceCents: p.PriceCents, LineTotalCents: p.PriceCents * int64(q)})
    }
    return out, nil
}

func newCartServer(t *testing.T) *echo.Echo {
    t.Helper()
    products := menu{1: {ID: 1, Name: "Flat white", PriceCents: 350, IsActive: true}}
    l := service.NewLifecycle(newMemStore(), products, seatPlan{}, nopNotifier{}, service.DefaultPolicy, quietLog())
    h := NewCartHandler(service.NewCarts(&memCart{menu: products, lines: map[uint64]map[uint64]int{}}, products, l, quietLog()), quietLog(), nil)

    e := echo.New()
    g := e.Group("/v1", jwt())
    g.GET("/cart", h.Get)
    g.POST("/cart", h.Add)
    g.POST("/cart/checkout", h.Checkout)
    g.PUT("/cart/:itemId", h.SetQuantity)
    g.DELETE("/cart/:itemId", h.Remove)
    g.DELETE("/cart", h.Clear)
    return e
}

func TestCartAddAndCheckout(t *testing.T) {
    e := newCartServer(t)
    who := bearer(t, 1, model.RoleCustomer)

    require.Equal(t, http.StatusOK, doJSON(e, http.MethodPost, "/v1/cart", who, `{"product_id":1}`).Code)
    rec := doJSON(e, http.MethodPost, "/v1/cart", who, `{"product_id":1,"quantity":2}`)
    require.Equal(t, http.StatusOK, rec.Code)
    var cart model.Cart
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
    require.Len(t, cart.Items, 1)
    assert.Equal(t, 3, cart.Items[0].Quantity)
    assert.Equal(t, int64(1050), cart.TotalCents)

    rec = doJSON(e, http.MethodPost, "/v1/cart/checkout", who, `{}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    order := decodeRequest(t, rec.Body.Bytes())
    assert.Equal(t, model.KindOrder, order.Kind)
    assert.Equal(t, int64(1050), order.TotalAmountCents)

    rec = doJSON(e, http.MethodGet, "/v1/cart", who, "")
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
    assert.Empty(t, cart.Items)

    assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodPost, "/v1/cart/checkout", who, `{}`).Code, "empty cart")
}

func TestCartValidation(t *testing.T) {
    e := newCartServer(t)
    who := bearer(t, 1, model.RoleCustomer)

    assert.Equal(t, http.StatusUnauthorized, doJSON(e, http.MethodGet, "/v1/cart", "", "").Code)
    assert.Equal(t, http.StatusNotFound, doJSON(e, http.MethodPost, "/v1/cart", who, `{"product_id":9}`).Code)
    assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodPut, "/v1/cart/1", who, `{"quantity":0}`).Code)
    assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodPut, "/v1/cart/x", who, `{"quantity":1}`).Code)
    assert.Equal(t, http.StatusBadRequest, doJSON(e, http.MethodPost, "/v1/cart/checkout", who, `{"kind":"reservation"}`).Code)
    assert.Equal(t, http.StatusNoContent, doJSON(e, http.MethodDelete, "/v1/cart", who, "").Code)
}
