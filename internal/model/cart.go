package model

// CartItem is one row of a user's cart joined with the current product
// name and price.
type CartItem struct {
    ProductID      uint64 `json:"product_id"`
    Name           string `json:"name"`
    Quantity       int    `json:"quantity"`
    UnitPriceCents int64  `json:"unit_price_cents"`
    LineTotalCents int64  `json:"line_total_cents"`
}

// Cart is the full content of one user's cart.
type Cart struct {
    UserID     uint64     `json:"user_id"`
    Items      []CartItem `json:"items"`
    TotalCents int64      `json:"total_cents"`
}
