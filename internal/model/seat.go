package model

import "time"

// Seat is a table or counter place in the café that reservations and
// walk-ins can be bound to.  A seat backs at most one non-terminal request
// for any instant of time.
type Seat struct {
    ID        uint64    `json:"id"`
    Label     string    `json:"label"`
    Capacity  uint32    `json:"capacity"`
    IsActive  bool      `json:"is_active"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}
