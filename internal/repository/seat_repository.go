package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"

	"github.com/iliyamo/cafe-ordering/internal/database"
	"github.com/iliyamo/cafe-ordering/internal/model"
)

// SeatRepo provides methods to work with café seats in the database.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, label, capacity, is_active, created_at, updated_at`

// Create inserts a single seat record. On success the seat's ID is populated.
// Labels are unique; a duplicate yields ErrConflict.
func (r *SeatRepo) Create(ctx context.Context, s *model.Seat) error {
	const q = `INSERT INTO seats (label, capacity, is_active) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.Label, s.Capacity, s.IsActive)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// List retrieves seats ordered by label.
func (r *SeatRepo) List(ctx context.Context, activeOnly bool) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.Label, &s.Capacity, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get returns a seat by id or ErrNotFound.
func (r *SeatRepo) Get(ctx context.Context, id uint64) (model.Seat, error) {
	var s model.Seat
	err := r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id).
		Scan(&s.ID, &s.Label, &s.Capacity, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, ErrNotFound
	}
	return s, err
}

// Update modifies label, capacity and the active flag.
func (r *SeatRepo) Update(ctx context.Context, s *model.Seat) error {
	const q = `UPDATE seats SET label = ?, capacity = ?, is_active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, s.Label, s.Capacity, s.IsActive, s.ID); err != nil {
		if database.IsDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	_, err := r.Get(ctx, s.ID)
	return err
}

// Delete removes a seat.  Seats still attached to a request yield
// ErrConflict.
func (r *SeatRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, `DELETE FROM seats WHERE id = ?`, id)
}
