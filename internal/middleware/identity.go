package middleware

// identity.go holds the helpers that move the authenticated caller in and
// out of the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cafe-ordering/internal/model"
)

const identityKey = "identity"

func setIdentity(c echo.Context, id model.Identity) {
    c.Set(identityKey, id)
    c.Set("user_id", id.UserID)
    c.Set("email", id.Email)
    c.Set("role", id.Role)
}

// Identity returns the caller attached by JWTAuth, or the anonymous
// identity on public routes.
func Identity(c echo.Context) model.Identity {
    if id, ok := c.Get(identityKey).(model.Identity); ok {
        return id
    }
    return model.Identity{}
}

// currentUserID returns the caller's ID as a string, or "anon".
func currentUserID(c echo.Context) string {
    if id := Identity(c); !id.Anonymous() {
        return strconv.FormatUint(id.UserID, 10)
    }
    return "anon"
}
