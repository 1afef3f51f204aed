package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

// RequestRepo persists orders, reservations, pre-orders and walk-ins in the
// service_requests table and their product lines in service_request_items.
// All timestamps are stored in UTC with microsecond precision.
type RequestRepo struct {
    db *sql.DB
}

// NewRequestRepo returns a RequestRepo bound to db.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// RequestFilter narrows List.  Zero fields do not filter.
type RequestFilter struct {
    OwnerID uint64
    Kind    model.Kind
    Status  model.Status
    Limit   int
    Offset  int
}

// SeatWindow is the seat and time window that must be free of other
// non-terminal requests for a write to succeed.
type SeatWindow struct {
    SeatID uint64
    Start  time.Time
    End    time.Time
}

// StatusChange describes a conditional status update: it only applies if
// the stored status still equals From.
type StatusChange struct {
    ID          uint64
    From        model.Status
    To          model.Status
    UpdatedAt   time.Time
    ReleaseSeat bool        // set seat_id to NULL
    Seat        *SeatWindow // re-check seat overlap under the seat lock
}

// ItemsChange adds product lines to a request whose status still equals
// ExpectStatus.  Lines for a product already on the request increase its
// quantity.
type ItemsChange struct {
    ID           uint64
    ExpectStatus model.Status
    Items        []model.Item
    UpdatedAt    time.Time
}

const requestColumns = `id, kind, owner_id, owner_email, status, total_amount_cents, seat_id, start_time, end_time, notes, created_at, updated_at`

// Create inserts req and its items in one transaction and fills req.ID.
// When a seat is attached the seat row is locked first and the insert is
// refused with ErrSeatTaken if another non-terminal request overlaps the
// window.
func (r *RequestRepo) Create(ctx context.Context, req *model.ServiceRequest) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if req.SeatID != nil && req.StartTime != nil && req.EndTime != nil {
        win := SeatWindow{SeatID: *req.SeatID, Start: *req.StartTime, End: *req.EndTime}
        if err := r.checkSeatTx(ctx, tx, win, 0); err != nil {
            return err
        }
    }

    const q = `INSERT INTO service_requests
                 (kind, owner_id, owner_email, status, total_amount_cents, seat_id, start_time, end_time, notes, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        req.Kind, req.OwnerID, req.OwnerEmail, req.Status, req.TotalAmountCents,
        nullableID(req.SeatID), nullableTime(req.StartTime), nullableTime(req.EndTime),
        req.Notes, req.CreatedAt, req.UpdatedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    req.ID = uint64(id)

    if err := insertItemsTx(ctx, tx, req.ID, req.Items, false); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// checkSeatTx locks the seat row and fails with ErrSeatTaken when a
// non-terminal request other than excludeID overlaps win.  Half-open
// windows: a booking ending at 11:00 does not collide with one starting at
// 11:00.
func (r *RequestRepo) checkSeatTx(ctx context.Context, tx *sql.Tx, win SeatWindow, excludeID uint64) error {
    var active bool
    err := tx.QueryRowContext(ctx, `SELECT is_active FROM seats WHERE id = ? FOR UPDATE`, win.SeatID).Scan(&active)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    if !active {
        return ErrConflict
    }

    const q = `SELECT COUNT(*) FROM service_requests
               WHERE seat_id = ? AND id <> ?
                 AND status NOT IN ('COMPLETED', 'CANCELLED')
                 AND start_time < ? AND end_time > ?`
    var n int
    if err := tx.QueryRowContext(ctx, q, win.SeatID, excludeID, win.End, win.Start).Scan(&n); err != nil {
        return err
    }
    if n > 0 {
        return ErrSeatTaken
    }
    return nil
}

// insertItemsTx writes item lines with a single multi-row statement.  With
// merge set, a line for a product already on the request adds to its
// quantity instead of failing on the unique key.
func insertItemsTx(ctx context.Context, tx *sql.Tx, requestID uint64, items []model.Item, merge bool) error {
    if len(items) == 0 {
        return nil
    }
    var b strings.Builder
    b.WriteString(`INSERT INTO service_request_items (request_id, product_id, quantity, unit_price_cents) VALUES `)
    args := make([]interface{}, 0, len(items)*4)
    for i, it := range items {
        if i > 0 {
            b.WriteString(",")
        }
        b.WriteString("(?, ?, ?, ?)")
        args = append(args, requestID, it.ProductID, it.Quantity, it.UnitPriceCents)
    }
    if merge {
        b.WriteString(` ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`)
    }
    _, err := tx.ExecContext(ctx, b.String(), args...)
    return err
}

// Get returns the request with its items or ErrNotFound.
func (r *RequestRepo) Get(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = ?`, id)
    req, err := scanRequest(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    byID := map[uint64]*model.ServiceRequest{req.ID: req}
    if err := r.loadItems(ctx, byID); err != nil {
        return nil, err
    }
    return req, nil
}

// List returns requests matching f, newest first, with their items.
func (r *RequestRepo) List(ctx context.Context, f RequestFilter) ([]model.ServiceRequest, error) {
    q := `SELECT ` + requestColumns + ` FROM service_requests WHERE 1=1`
    var args []interface{}
    if f.OwnerID != 0 {
        q += ` AND owner_id = ?`
        args = append(args, f.OwnerID)
    }
    if f.Kind != "" {
        q += ` AND kind = ?`
        args = append(args, f.Kind)
    }
    if f.Status != "" {
        q += ` AND status = ?`
        args = append(args, f.Status)
    }
    q += ` ORDER BY created_at DESC, id DESC`
    if f.Limit > 0 {
        q += ` LIMIT ? OFFSET ?`
        args = append(args, f.Limit, f.Offset)
    }

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []*model.ServiceRequest
    byID := make(map[uint64]*model.ServiceRequest)
    for rows.Next() {
        req, err := scanRequest(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, req)
        byID[req.ID] = req
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := r.loadItems(ctx, byID); err != nil {
        return nil, err
    }
    list := make([]model.ServiceRequest, 0, len(out))
    for _, req := range out {
        list = append(list, *req)
    }
    return list, nil
}

// loadItems fills Items of every request in byID with one query.
func (r *RequestRepo) loadItems(ctx context.Context, byID map[uint64]*model.ServiceRequest) error {
    if len(byID) == 0 {
        return nil
    }
    ids := make([]interface{}, 0, len(byID))
    for id := range byID {
        ids = append(ids, id)
    }
    q := `SELECT request_id, product_id, quantity, unit_price_cents FROM service_request_items
          WHERE request_id IN (` + placeholders(len(ids)) + `) ORDER BY request_id, id`
    rows, err := r.db.QueryContext(ctx, q, ids...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var reqID uint64
        var it model.Item
        if err := rows.Scan(&reqID, &it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
            return err
        }
        if req := byID[reqID]; req != nil {
            req.Items = append(req.Items, it)
        }
    }
    if err := rows.Err(); err != nil {
        return err
    }
    for _, req := range byID {
        if req.Items == nil {
            req.Items = []model.Item{}
        }
    }
    return nil
}

// UpdateStatus applies ch only if the stored status still equals ch.From.
// It reports whether a row was changed.  With ch.Seat set, the seat row is
// locked and overlap re-checked in the same transaction, so two
// confirmations racing for one seat cannot both succeed.
func (r *RequestRepo) UpdateStatus(ctx context.Context, ch StatusChange) (bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if ch.Seat != nil {
        if err := r.checkSeatTx(ctx, tx, *ch.Seat, ch.ID); err != nil {
            return false, err
        }
    }

    q := `UPDATE service_requests SET status = ?, updated_at = ?`
    if ch.ReleaseSeat {
        q += `, seat_id = NULL`
    }
    q += ` WHERE id = ? AND status = ?`
    res, err := tx.ExecContext(ctx, q, ch.To, ch.UpdatedAt, ch.ID, ch.From)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return n == 1, nil
}

// AddItems merges ch.Items into the request and recomputes its total.  It
// reports false without writing when the request status no longer equals
// ch.ExpectStatus, ErrNotFound when the request is gone and
// ErrQuantityLimit when a merged line would exceed MaxItemQuantity.
func (r *RequestRepo) AddItems(ctx context.Context, ch ItemsChange) (bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var status model.Status
    err = tx.QueryRowContext(ctx, `SELECT status FROM service_requests WHERE id = ? FOR UPDATE`, ch.ID).Scan(&status)
    if errors.Is(err, sql.ErrNoRows) {
        return false, ErrNotFound
    }
    if err != nil {
        return false, err
    }
    if status != ch.ExpectStatus {
        return false, nil
    }
    if err := insertItemsTx(ctx, tx, ch.ID, ch.Items, true); err != nil {
        return false, err
    }
    var over int
    err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM service_request_items WHERE request_id = ? AND quantity > ?`,
        ch.ID, MaxItemQuantity).Scan(&over)
    if err != nil {
        return false, err
    }
    if over > 0 {
        return false, ErrQuantityLimit
    }
    const upd = `UPDATE service_requests
                 SET total_amount_cents = (SELECT COALESCE(SUM(quantity * unit_price_cents), 0)
                                           FROM service_request_items WHERE request_id = ?),
                     updated_at = ?
                 WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd, ch.ID, ch.UpdatedAt, ch.ID); err != nil {
        return false, err
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return true, nil
}

// Delete removes a request and, through the foreign key cascade, its items.
func (r *RequestRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = ?`, id)
    if err != nil {
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

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanRequest(s rowScanner) (*model.ServiceRequest, error) {
    var (
        req        model.ServiceRequest
        seatID     sql.NullInt64
        start, end sql.NullTime
    )
    err := s.Scan(&req.ID, &req.Kind, &req.OwnerID, &req.OwnerEmail, &req.Status, &req.TotalAmountCents,
        &seatID, &start, &end, &req.Notes, &req.CreatedAt, &req.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if seatID.Valid {
        id := uint64(seatID.Int64)
        req.SeatID = &id
    }
    if start.Valid {
        t := start.Time.UTC()
        req.StartTime = &t
    }
    if end.Valid {
        t := end.Time.UTC()
        req.EndTime = &t
    }
    req.CreatedAt = req.CreatedAt.UTC()
    req.UpdatedAt = req.UpdatedAt.UTC()
    return &req, nil
}

func nullableID(id *uint64) interface{} {
    if id == nil {
        return nil
    }
    return *id
}

func nullableTime(t *time.Time) interface{} {
    if t == nil {
        return nil
    }
    return t.UTC()
}

func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.Repeat("?,", n-1) + "?"
}
