// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

// StatusChangedQueue is the durable queue carrying request notifications.
const StatusChangedQueue = "request.status_changed"

// StatusChangedEvent is published when a service request is created or
// changes status.  It carries enough information for the notification
// consumer to address and render an email without querying the primary
// database.  FromStatus is empty for a newly created request.
type StatusChangedEvent struct {
    EventID          string  `json:"event_id"`
    RequestID        uint64  `json:"request_id"`
    Kind             string  `json:"kind"`
    OwnerID          uint64  `json:"owner_id"`
    OwnerEmail       string  `json:"owner_email"`
    FromStatus       string  `json:"from_status,omitempty"`
    ToStatus         string  `json:"to_status"`
    TotalAmountCents int64   `json:"total_amount_cents"`
    SeatID           *uint64 `json:"seat_id,omitempty"`
    StartsAt         string  `json:"starts_at,omitempty"`
    EndsAt           string  `json:"ends_at,omitempty"`
    OccurredAt       string  `json:"occurred_at"`
}

// NewStatusChangedEvent snapshots req after a change from `from`.
func NewStatusChangedEvent(req *model.ServiceRequest, from model.Status) StatusChangedEvent {
    ev := StatusChangedEvent{
        EventID:          uuid.NewString(),
        RequestID:        req.ID,
        Kind:             string(req.Kind),
        OwnerID:          req.OwnerID,
        OwnerEmail:       req.OwnerEmail,
        FromStatus:       string(from),
        ToStatus:         string(req.Status),
        TotalAmountCents: req.TotalAmountCents,
        SeatID:           req.SeatID,
        OccurredAt:       req.UpdatedAt.UTC().Format(time.RFC3339Nano),
    }
    if req.StartTime != nil {
        ev.StartsAt = req.StartTime.UTC().Format(time.RFC3339)
    }
    if req.EndTime != nil {
        ev.EndsAt = req.EndTime.UTC().Format(time.RFC3339)
    }
    return ev
}
