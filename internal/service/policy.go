package service

import (
    "fmt"
    "time"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

// Policy holds the configurable rules of the lifecycle engine.
type Policy struct {
    // AdminForceCancel lets ADMIN callers cancel requests past PENDING.
    AdminForceCancel bool
    // DefaultSlot is the booking length used when no end time is given.
    DefaultSlot time.Duration
}

// DefaultPolicy is used when no configuration is supplied.
var DefaultPolicy = Policy{AdminForceCancel: true, DefaultSlot: 90 * time.Minute}

// Action is an operation a caller attempts on a service request.
type Action int

const (
    ActionView Action = iota
    ActionEditItems
    ActionCancel
    ActionAdvance
    ActionDelete
)

func (a Action) String() string {
    switch a {
    case ActionView:
        return "view"
    case ActionEditItems:
        return "edit items of"
    case ActionCancel:
        return "cancel"
    case ActionAdvance:
        return "advance"
    case ActionDelete:
        return "delete"
    }
    return "unknown"
}

// ActionFor maps a target status to the action it requires.
func ActionFor(target model.Status) Action {
    if target == model.StatusCancelled {
        return ActionCancel
    }
    return ActionAdvance
}

// Authorize decides whether who may perform act on req.  It only checks
// roles and ownership; whether the transition itself is reachable is
// decided separately.
//
//   view, edit items, cancel: the owner, STAFF or ADMIN
//   advance:                  STAFF or ADMIN
//   delete:                   ADMIN
func Authorize(who model.Identity, req *model.ServiceRequest, act Action) error {
    if who.Anonymous() {
        return ErrUnauthenticated
    }
    owner := req != nil && req.OwnerID == who.UserID
    var ok bool
    switch act {
    case ActionView, ActionEditItems, ActionCancel:
        ok = owner || who.IsStaff()
    case ActionAdvance:
        ok = who.IsStaff()
    case ActionDelete:
        ok = who.IsAdmin()
    }
    if !ok {
        return fmt.Errorf("%w: role %s may not %s this request", ErrForbidden, who.Role, act)
    }
    return nil
}
