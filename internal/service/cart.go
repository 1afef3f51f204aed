package service

import (
    "context"
    "fmt"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

const maxCartQuantity = repository.MaxItemQuantity

// Carts manages the per-user shopping cart and turns it into an order.
type Carts struct {
    store     CartStore
    products  ProductLookup
    lifecycle *Lifecycle
    log       logrus.FieldLogger
}

func NewCarts(store CartStore, products ProductLookup, lifecycle *Lifecycle, log logrus.FieldLogger) *Carts {
    return &Carts{store: store, products: products, lifecycle: lifecycle, log: log}
}

// CheckoutInput selects the kind of request a cart becomes.
type CheckoutInput struct {
    Kind      model.Kind
    SeatID    *uint64
    StartTime *time.Time
    Notes     string
}

// Get returns the caller's cart with current prices.
func (c *Carts) Get(ctx context.Context, who model.Identity) (*model.Cart, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    items, err := c.store.List(ctx, who.UserID)
    if err != nil {
        return nil, storeErr("list cart", err)
    }
    cart := &model.Cart{UserID: who.UserID, Items: items}
    for _, it := range items {
        cart.TotalCents += it.LineTotalCents
    }
    return cart, nil
}

// Increment adds delta units of productID.  Concurrent increments of the
// same line all count; the line saturates at maxCartQuantity.
func (c *Carts) Increment(ctx context.Context, who model.Identity, productID uint64, delta int) (*model.Cart, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    if delta <= 0 || delta > maxCartQuantity {
        return nil, invalidf("quantity must be between 1 and %d", maxCartQuantity)
    }
    if err := c.ensureProduct(ctx, productID); err != nil {
        return nil, err
    }
    if err := c.store.Increment(ctx, who.UserID, productID, delta); err != nil {
        return nil, storeErr("increment cart", err)
    }
    return c.Get(ctx, who)
}

// SetQuantity overwrites a line; the last writer wins.
func (c *Carts) SetQuantity(ctx context.Context, who model.Identity, productID uint64, qty int) (*model.Cart, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    if qty <= 0 || qty > maxCartQuantity {
        return nil, invalidf("quantity must be between 1 and %d", maxCartQuantity)
    }
    if err := c.ensureProduct(ctx, productID); err != nil {
        return nil, err
    }
    if err := c.store.SetQuantity(ctx, who.UserID, productID, qty); err != nil {
        return nil, storeErr("set cart quantity", err)
    }
    return c.Get(ctx, who)
}

// Remove drops a line.  Removing an absent line is a no-op.
func (c *Carts) Remove(ctx context.Context, who model.Identity, productID uint64) (*model.Cart, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    if err := c.store.Remove(ctx, who.UserID, productID); err != nil {
        return nil, storeErr("remove cart line", err)
    }
    return c.Get(ctx, who)
}

// Clear empties the cart.
func (c *Carts) Clear(ctx context.Context, who model.Identity) error {
    if who.Anonymous() {
        return ErrUnauthenticated
    }
    return storeErr("clear cart", c.store.Clear(ctx, who.UserID))
}

// Checkout creates an ORDER (or PREORDER) from the cart and empties it.
// The request is kept even if clearing the cart fails afterwards.
func (c *Carts) Checkout(ctx context.Context, who model.Identity, in CheckoutInput) (*model.ServiceRequest, error) {
    if who.Anonymous() {
        return nil, ErrUnauthenticated
    }
    kind := in.Kind
    if kind == "" {
        kind = model.KindOrder
    }
    if kind != model.KindOrder && kind != model.KindPreOrder {
        return nil, invalidf("a cart can only become an order or a pre-order")
    }
    lines, err := c.store.List(ctx, who.UserID)
    if err != nil {
        return nil, storeErr("list cart", err)
    }
    if len(lines) == 0 {
        return nil, invalidf("cart is empty")
    }
    items := make([]ItemInput, 0, len(lines))
    for _, l := range lines {
        items = append(items, ItemInput{ProductID: l.ProductID, Quantity: l.Quantity})
    }
    req, err := c.lifecycle.Create(ctx, who, CreateInput{
        Kind:      kind,
        Items:     items,
        SeatID:    in.SeatID,
        StartTime: in.StartTime,
        Notes:     in.Notes,
    })
    if err != nil {
        return nil, err
    }
    if err := c.store.Clear(ctx, who.UserID); err != nil {
        c.log.WithError(err).WithField("request_id", req.ID).Warn("cart not cleared after checkout")
    }
    return req, nil
}

func (c *Carts) ensureProduct(ctx context.Context, id uint64) error {
    if id == 0 {
        return invalidf("product_id is required")
    }
    found, err := c.products.GetMany(ctx, []uint64{id})
    if err != nil {
        return storeErr("load product", err)
    }
    if p, ok := found[id]; !ok || !p.IsActive {
        return fmt.Errorf("%w: product %d", ErrNotFound, id)
    }
    return nil
}
