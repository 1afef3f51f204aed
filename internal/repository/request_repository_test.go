package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cafe-ordering/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRequestRepoCreateRejectsOverlappingSeat(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepo(db)

	seat := uint64(7)
	start := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	req := &model.ServiceRequest{
		Kind: model.KindReservation, OwnerID: 1, OwnerEmail: "a@b.c", Status: model.StatusPending,
		SeatID: &seat, StartTime: &start, EndTime: &end,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_active FROM seats WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM service_requests`).
		WithArgs(7, 0, end, start).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoCreateInsertsRequestAndItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepo(db)

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	req := &model.ServiceRequest{
		Kind: model.KindOrder, OwnerID: 3, OwnerEmail: "c@d.e", Status: model.StatusPending,
		Items:            []model.Item{{ProductID: 1, Quantity: 2, UnitPriceCents: 350}, {ProductID: 4, Quantity: 1, UnitPriceCents: 500}},
		TotalAmountCents: 1200, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO service_requests`).
		WithArgs("ORDER", 3, "c@d.e", "PENDING", 1200, nil, nil, nil, "", now, now).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(`INSERT INTO service_request_items \(request_id, product_id, quantity, unit_price_cents\) VALUES \(\?, \?, \?, \?\),\(\?, \?, \?, \?\)$`).
		WithArgs(42, 1, 2, 350, 42, 4, 1, 500).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, uint64(42), req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoUpdateStatusIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepo(db)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE service_requests SET status = \?, updated_at = \?, seat_id = NULL WHERE id = \? AND status = \?`).
		WithArgs("COMPLETED", at, 9, "READY").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.UpdateStatus(context.Background(), StatusChange{
		ID: 9, From: model.StatusReady, To: model.StatusCompleted, UpdatedAt: at, ReleaseSeat: true,
	})
	require.NoError(t, err)
	assert.False(t, ok, "a concurrent change leaves zero affected rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoConfirmRechecksSeatExcludingItself(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepo(db)
	start := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	at := start.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT is_active FROM seats`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM service_requests`).WithArgs(7, 5, end, start).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(`UPDATE service_requests SET status = \?, updated_at = \? WHERE id = \? AND status = \?`).
		WithArgs("CONFIRMED", at, 5, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.UpdateStatus(context.Background(), StatusChange{
		ID: 5, From: model.StatusPending, To: model.StatusConfirmed, UpdatedAt: at,
		Seat: &SeatWindow{SeatID: 7, Start: start, End: end},
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoGetLoadsItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRequestRepo(db)
	created := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	cols := []string{"id", "kind", "owner_id", "owner_email", "status", "total_amount_cents", "seat_id", "start_time", "end_time", "notes", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT id, kind, owner_id .* FROM service_requests WHERE id = \?`).WithArgs(11).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, "ORDER", 2, "x@y.z", "PENDING", 700, nil, nil, nil, "", created, created))
	mock.ExpectQuery(`SELECT request_id, product_id, quantity, unit_price_cents FROM service_request_items`).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"request_id", "product_id", "quantity", "unit_price_cents"}).AddRow(11, 3, 2, 350))

	req, err := repo.Get(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Nil(t, req.SeatID)
	assert.Equal(t, []model.Item{{ProductID: 3, Quantity: 2, UnitPriceCents: 350}}, req.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoGetMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM service_requests WHERE id = \?`).WithArgs(1).WillReturnError(sql.ErrNoRows)

	_, err := NewRequestRepo(db).Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestRepoAddItemsSkipsWhenStatusMoved(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM service_requests WHERE id = \? FOR UPDATE`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CONFIRMED"))
	mock.ExpectRollback()

	ok, err := NewRequestRepo(db).AddItems(context.Background(), ItemsChange{
		ID: 4, ExpectStatus: model.StatusPending, Items: []model.Item{{ProductID: 1, Quantity: 1, UnitPriceCents: 100}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoAddItemsRejectsLineOverLimit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM service_requests WHERE id = \? FOR UPDATE`).WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(`INSERT INTO service_request_items .* ON DUPLICATE KEY UPDATE quantity = quantity \+ VALUES\(quantity\)`).
		WithArgs(4, 1, 60, 100).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM service_request_items WHERE request_id = \? AND quantity > \?`).
		WithArgs(4, MaxItemQuantity).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	ok, err := NewRequestRepo(db).AddItems(context.Background(), ItemsChange{
		ID: 4, ExpectStatus: model.StatusPending, Items: []model.Item{{ProductID: 1, Quantity: 60, UnitPriceCents: 100}},
	})
	assert.ErrorIs(t, err, ErrQuantityLimit)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepoDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM service_requests WHERE id = \?`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewRequestRepo(db).Delete(context.Background(), 8), ErrNotFound)
}
