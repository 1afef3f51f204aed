// Package service holds the business rules of the café backend: the
// request lifecycle engine, the cart helper and the sales analytics.
// Persistence is reached only through the narrow interfaces below, which
// the MySQL repositories implement.
package service

import (
    "context"
    "time"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/queue"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

// RequestStore persists service requests.
type RequestStore interface {
    Create(ctx context.Context, req *model.ServiceRequest) error
    Get(ctx context.Context, id uint64) (*model.ServiceRequest, error)
    List(ctx context.Context, f repository.RequestFilter) ([]model.ServiceRequest, error)
    UpdateStatus(ctx context.Context, ch repository.StatusChange) (bool, error)
    AddItems(ctx context.Context, ch repository.ItemsChange) (bool, error)
    Delete(ctx context.Context, id uint64) error
}

// ProductLookup resolves catalog entries referenced by item lines.
type ProductLookup interface {
    GetMany(ctx context.Context, ids []uint64) (map[uint64]model.Product, error)
}

// SeatLookup resolves seats referenced by bookings.
type SeatLookup interface {
    Get(ctx context.Context, id uint64) (model.Seat, error)
}

// CartStore persists cart lines.  Increment must be atomic with respect to
// concurrent increments of the same line.
type CartStore interface {
    Increment(ctx context.Context, userID, productID uint64, delta int) error
    SetQuantity(ctx context.Context, userID, productID uint64, qty int) error
    Remove(ctx context.Context, userID, productID uint64) error
    Clear(ctx context.Context, userID uint64) error
    List(ctx context.Context, userID uint64) ([]model.CartItem, error)
}

// ReportStore runs the aggregation queries.
type ReportStore interface {
    SalesByMonth(ctx context.Context, from, to time.Time, statuses []model.Status) ([]repository.MonthTotal, error)
    SalesYears(ctx context.Context, statuses []model.Status) ([]int, error)
    CountByMonth(ctx context.Context, kind model.Kind, from, to time.Time) ([]repository.YearMonthCount, error)
    ProductLineCounts(ctx context.Context) ([]model.TopProduct, error)
}

// Notifier publishes request events.  Delivery is best effort.
type Notifier interface {
    Publish(ctx context.Context, ev queue.StatusChangedEvent) error
}
