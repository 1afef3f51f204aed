package model

import "strings"

// Status is the lifecycle state of a service request.
type Status string

const (
    StatusPending   Status = "PENDING"
    StatusConfirmed Status = "CONFIRMED"
    StatusPreparing Status = "PREPARING"
    StatusReady     Status = "READY"
    StatusPaid      Status = "PAID"
    StatusCompleted Status = "COMPLETED"
    StatusCancelled Status = "CANCELLED"
)

// forward lists the non-cancelling edges of the lifecycle graph.  PAID is
// an optional stop between READY and COMPLETED.
var forward = map[Status][]Status{
    StatusPending:   {StatusConfirmed},
    StatusConfirmed: {StatusPreparing},
    StatusPreparing: {StatusReady},
    StatusReady:     {StatusPaid, StatusCompleted},
    StatusPaid:      {StatusCompleted},
}

// SalesStatuses are the statuses whose totals count as revenue.
var SalesStatuses = []Status{StatusCompleted, StatusPaid}

// ParseStatus accepts any letter case and reports whether s names a known
// status.
func ParseStatus(s string) (Status, bool) {
    st := Status(strings.ToUpper(strings.TrimSpace(s)))
    switch st {
    case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
        StatusPaid, StatusCompleted, StatusCancelled:
        return st, true
    }
    return "", false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
    return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether to is reachable from from in one step.
// Cancellation is allowed from PENDING; from any other non-terminal state
// it needs force, which the caller grants only under the admin
// force-cancel policy.
func CanTransition(from, to Status, force bool) bool {
    if from.IsTerminal() || from == to {
        return false
    }
    if to == StatusCancelled {
        return from == StatusPending || force
    }
    for _, next := range forward[from] {
        if next == to {
            return true
        }
    }
    return false
}

// Kind tags the flavour of a service request.  All kinds share one
// lifecycle and one table.
type Kind string

const (
    KindOrder       Kind = "ORDER"
    KindReservation Kind = "RESERVATION"
    KindPreOrder    Kind = "PREORDER"
    KindWalkIn      Kind = "WALKIN"
)

// KindRules describes which inputs a kind needs at creation.
type KindRules struct {
    RequiresItems bool // at least one item line
    RequiresSeat  bool // a seat must be attached
    RequiresStart bool // the caller must provide a start time
    StartsNow     bool // a missing start time defaults to now
    DefaultsEnd   bool // a missing end time defaults to start + slot
}

var kindRules = map[Kind]KindRules{
    KindOrder:       {RequiresItems: true},
    KindPreOrder:    {RequiresItems: true, RequiresStart: true},
    KindReservation: {RequiresSeat: true, RequiresStart: true, DefaultsEnd: true},
    KindWalkIn:      {RequiresSeat: true, StartsNow: true, DefaultsEnd: true},
}

// ParseKind accepts any letter case and the hyphenated spellings used in
// URLs ("pre-order", "walk-in").
func ParseKind(s string) (Kind, bool) {
    k := Kind(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")))
    _, ok := kindRules[k]
    return k, ok
}

// Rules returns the creation rules for k.
func (k Kind) Rules() KindRules { return kindRules[k] }
