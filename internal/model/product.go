package model

import "time"

// Product is a catalog entry.  Order items reference products by ID and
// never copy anything but the unit price.
type Product struct {
    ID           uint64    `json:"id"`
    Name         string    `json:"name"`
    PriceCents   int64     `json:"price_cents"`
    CategoryID   *uint64   `json:"category_id,omitempty"`
    CategoryName string    `json:"category,omitempty"`
    ImageURL     string    `json:"image_url"`
    IsActive     bool      `json:"is_active"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}

// Category groups products on the menu.
type Category struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
