package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

// ReportRepo runs the read-only aggregation queries behind the analytics
// endpoints.  It uses sqlx for struct scanning and IN-list expansion.
type ReportRepo struct {
	db *sqlx.DB
}

// NewReportRepo wraps the shared pool; no extra connections are opened.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: sqlx.NewDb(db, "mysql")}
}

// MonthTotal is a revenue sum for one calendar month (1..12).
type MonthTotal struct {
	Month int   `db:"month"`
	Total int64 `db:"total"`
}

// YearMonthCount is a row count for one (year, month) pair, month 1..12.
type YearMonthCount struct {
	Year  int   `db:"year"`
	Month int   `db:"month"`
	Count int64 `db:"cnt"`
}

// SalesByMonth sums total_amount_cents of requests in statuses whose
// created_at falls in [from, to), grouped by month.
func (r *ReportRepo) SalesByMonth(ctx context.Context, from, to time.Time, statuses []model.Status) ([]MonthTotal, error) {
	q, args, err := sqlx.In(`SELECT MONTH(created_at) AS month, COALESCE(SUM(total_amount_cents), 0) AS total
		FROM service_requests
		WHERE status IN (?) AND created_at >= ? AND created_at < ?
		GROUP BY MONTH(created_at)
		ORDER BY month`, statuses, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	var out []MonthTotal
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// SalesYears lists the distinct years having at least one request in
// statuses, newest first.
func (r *ReportRepo) SalesYears(ctx context.Context, statuses []model.Status) ([]int, error) {
	q, args, err := sqlx.In(`SELECT DISTINCT YEAR(created_at) AS year
		FROM service_requests
		WHERE status IN (?)
		ORDER BY year DESC`, statuses)
	if err != nil {
		return nil, err
	}
	var out []int
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByMonth counts requests of kind created in [from, to) per
// (year, month), regardless of status.
func (r *ReportRepo) CountByMonth(ctx context.Context, kind model.Kind, from, to time.Time) ([]YearMonthCount, error) {
	const q = `SELECT YEAR(created_at) AS year, MONTH(created_at) AS month, COUNT(*) AS cnt
		FROM service_requests
		WHERE kind = ? AND created_at >= ? AND created_at < ?
		GROUP BY YEAR(created_at), MONTH(created_at)`
	var out []YearMonthCount
	if err := r.db.SelectContext(ctx, &out, q, kind, from.UTC(), to.UTC()); err != nil {
		return nil, err
	}
	return out, nil
}

type productCountRow struct {
	ID           uint64        `db:"id"`
	Name         string        `db:"name"`
	PriceCents   int64         `db:"price_cents"`
	CategoryID   sql.NullInt64 `db:"category_id"`
	CategoryName string        `db:"category_name"`
	ImageURL     string        `db:"image_url"`
	IsActive     bool          `db:"is_active"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
	Lines        int64         `db:"line_count"`
}

// ProductLineCounts returns every product referenced by at least one
// request line with the number of such lines, in catalog order (ascending
// product id).  Ranking is left to the caller.
func (r *ReportRepo) ProductLineCounts(ctx context.Context) ([]model.TopProduct, error) {
	const q = `SELECT p.id, p.name, p.price_cents, p.category_id, COALESCE(c.name, '') AS category_name,
			p.image_url, p.is_active, p.created_at, p.updated_at, COUNT(i.id) AS line_count
		FROM products p
		JOIN service_request_items i ON i.product_id = p.id
		LEFT JOIN categories c ON c.id = p.category_id
		GROUP BY p.id, c.name
		ORDER BY p.id`
	var rows []productCountRow
	if err := r.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	out := make([]model.TopProduct, 0, len(rows))
	for _, row := range rows {
		p := model.Product{
			ID:           row.ID,
			Name:         row.Name,
			PriceCents:   row.PriceCents,
			CategoryName: row.CategoryName,
			ImageURL:     row.ImageURL,
			IsActive:     row.IsActive,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		}
		if row.CategoryID.Valid {
			id := uint64(row.CategoryID.Int64)
			p.CategoryID = &id
		}
		out = append(out, model.TopProduct{Product: p, TotalOrderCount: row.Lines})
	}
	return out, nil
}
