package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// ProductRepo provides CRUD access to the menu catalog.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo with the given DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ProductFilter narrows List.
type ProductFilter struct {
	CategoryID uint64 // 0 = any category
	ActiveOnly bool
}

const productSelect = `SELECT p.id, p.name, p.price_cents, p.category_id, COALESCE(c.name, ''), p.image_url, p.is_active, p.created_at, p.updated_at
	FROM products p LEFT JOIN categories c ON c.id = p.category_id`

// List returns products in catalog order (ascending id).
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := productSelect + ` WHERE 1=1`
	var args []interface{}
	if f.CategoryID != 0 {
		q += ` AND p.category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.ActiveOnly {
		q += ` AND p.is_active = 1`
	}
	q += ` ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one product or ErrNotFound.
func (r *ProductRepo) Get(ctx context.Context, id uint64) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrNotFound
	}
	return p, err
}

// GetMany returns the products with the given ids keyed by id.  Missing ids
// are simply absent from the map.
func (r *ProductRepo) GetMany(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	out := make(map[uint64]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, productSelect+` WHERE p.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Create inserts p and fills its ID.  A category that does not exist yields
// ErrNotFound.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const q = `INSERT INTO products (name, price_cents, category_id, image_url, is_active) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.PriceCents, nullableID(p.CategoryID), p.ImageURL, p.IsActive)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update overwrites the editable fields of p.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	const q = `UPDATE products SET name = ?, price_cents = ?, category_id = ?, image_url = ?, is_active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, p.Name, p.PriceCents, nullableID(p.CategoryID), p.ImageURL, p.IsActive, p.ID); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return err
	}
	return r.exists(ctx, `SELECT 1 FROM products WHERE id = ?`, p.ID)
}

// Delete removes a product.  Products referenced by request lines cannot be
// deleted (ErrConflict); deactivate them instead.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, `DELETE FROM products WHERE id = ?`, id)
}

func (r *ProductRepo) exists(ctx context.Context, q string, id uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p   model.Product
		cat sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.PriceCents, &cat, &p.CategoryName, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}
	if cat.Valid {
		id := uint64(cat.Int64)
		p.CategoryID = &id
	}
	return p, nil
}

// deleteByID runs a single-row delete and maps "no row" to ErrNotFound and
// a foreign key violation to ErrConflict.
func deleteByID(ctx context.Context, db *sql.DB, q string, id uint64) error {
	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
