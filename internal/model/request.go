package model

import "time"

// ServiceRequest is an order, reservation, pre-order or walk-in.  It is a
// row in the `service_requests` table plus its item lines from
// `service_request_items`.
//
// Fields:
//  ID               – primary key, immutable.
//  Kind             – ORDER, RESERVATION, PREORDER or WALKIN.
//  OwnerID/Email    – requesting user, immutable.
//  Status           – lifecycle state, changed only by the lifecycle engine.
//  Items            – product lines, quantity > 0.
//  TotalAmountCents – sum of quantity × unit price; never negative.
//  SeatID           – attached seat; cleared once the request is terminal.
//  StartTime        – booking window start (nullable).
//  EndTime          – booking window end, ≥ StartTime (nullable).
//  CreatedAt        – creation timestamp (UTC).
//  UpdatedAt        – bumped on every mutation, strictly increasing.
type ServiceRequest struct {
    ID               uint64     `json:"id"`
    Kind             Kind       `json:"kind"`
    OwnerID          uint64     `json:"owner_id"`
    OwnerEmail       string     `json:"owner_email"`
    Status           Status     `json:"status"`
    Items            []Item     `json:"items"`
    TotalAmountCents int64      `json:"total_amount_cents"`
    SeatID           *uint64    `json:"seat_id,omitempty"`
    StartTime        *time.Time `json:"start_time,omitempty"`
    EndTime          *time.Time `json:"end_time,omitempty"`
    Notes            string     `json:"notes,omitempty"`
    CreatedAt        time.Time  `json:"created_at"`
    UpdatedAt        time.Time  `json:"updated_at"`
}

// Item is one product line of a request.  UnitPriceCents is the catalog
// price captured when the line was added.
type Item struct {
    ProductID      uint64 `json:"product_id"`
    Quantity       int    `json:"quantity"`
    UnitPriceCents int64  `json:"unit_price_cents"`
}

// Total recomputes the request total from its items.
func (r *ServiceRequest) Total() int64 {
    var sum int64
    for _, it := range r.Items {
        sum += int64(it.Quantity) * it.UnitPriceCents
    }
    return sum
}

// Overlaps reports whether the half-open windows [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && bStart.Before(aEnd)
}
