package service

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

func TestAuthorize(t *testing.T) {
    req := &model.ServiceRequest{ID: 1, OwnerID: customer.UserID}
    cases := []struct {
        who  model.Identity
        act  Action
        want error
    }{
        {model.Identity{}, ActionView, ErrUnauthenticated},
        {customer, ActionView, nil},
        {customer, ActionEditItems, nil},
        {customer, ActionCancel, nil},
        {customer, ActionAdvance, ErrForbidden},
        {customer, ActionDelete, ErrForbidden},
        {stranger, ActionView, ErrForbidden},
        {stranger, ActionCancel, ErrForbidden},
        {staff, ActionView, nil},
        {staff, ActionAdvance, nil},
        {staff, ActionCancel, nil},
        {staff, ActionDelete, ErrForbidden},
        {admin, ActionAdvance, nil},
        {admin, ActionDelete, nil},
    }
    for _, tc := range cases {
        err := Authorize(tc.who, req, tc.act)
        if tc.want == nil {
            assert.NoError(t, err, "%s %s", tc.who.Role, tc.act)
            continue
        }
        assert.ErrorIs(t, err, tc.want, "%s %s", tc.who.Role, tc.act)
    }
}

func TestActionFor(t *testing.T) {
    assert.Equal(t, ActionCancel, ActionFor(model.StatusCancelled))
    assert.Equal(t, ActionAdvance, ActionFor(model.StatusPaid))
}
