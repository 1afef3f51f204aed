package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// CartRepo stores one row per (user, product) in cart_items.  Quantity
// changes are single statements so concurrent adds never lose an update.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// Increment adds delta to the quantity of productID, creating the line if
// needed.  The read-modify-write happens inside MySQL and saturates at
// MaxItemQuantity.
func (r *CartRepo) Increment(ctx context.Context, userID, productID uint64, delta int) error {
	const q = `INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = LEAST(quantity + VALUES(quantity), ?)`
	_, err := r.db.ExecContext(ctx, q, userID, productID, delta, MaxItemQuantity)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// SetQuantity overwrites the quantity of a line (last writer wins).
func (r *CartRepo) SetQuantity(ctx context.Context, userID, productID uint64, qty int) error {
	const q = `INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`
	_, err := r.db.ExecContext(ctx, q, userID, productID, qty)
	if database.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// Remove deletes one line.  Removing a missing line is not an error.
func (r *CartRepo) Remove(ctx context.Context, userID, productID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	return err
}

// Clear empties the user's cart.
func (r *CartRepo) Clear(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

// List returns the cart lines joined with current product name and price.
func (r *CartRepo) List(ctx context.Context, userID uint64) ([]model.CartItem, error) {
	const q = `SELECT ci.product_id, p.name, ci.quantity, p.price_cents
	           FROM cart_items ci JOIN products p ON p.id = ci.product_id
	           WHERE ci.user_id = ?
	           ORDER BY ci.product_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		it.LineTotalCents = int64(it.Quantity) * it.UnitPriceCents
		out = append(out, it)
	}
	return out, rows.Err()
}
