package model

import (
    "strings"
    "time"
)

// Role names stored in users.role and carried in the JWT "role" claim.
const (
    RoleCustomer = "CUSTOMER"
    RoleStaff    = "STAFF"
    RoleAdmin    = "ADMIN"
)

// NormalizeRole upper-cases r and reports whether it is a known role.
func NormalizeRole(r string) (string, bool) {
    r = strings.ToUpper(strings.TrimSpace(r))
    switch r {
    case RoleCustomer, RoleStaff, RoleAdmin:
        return r, true
    }
    return "", false
}

// User represents an application user record as stored in the `users`
// table.  The password hash never leaves the repository and service
// layers; handlers expose users through their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER, STAFF or ADMIN.
//  IsActive     – whether the account may sign in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// Identity is the resolved caller of a request.  The zero value is the
// anonymous caller.
type Identity struct {
    UserID uint64
    Email  string
    Role   string
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool { return i.UserID == 0 }

// IsStaff reports whether the caller may operate on other users' requests.
func (i Identity) IsStaff() bool { return i.Role == RoleStaff || i.Role == RoleAdmin }

// IsAdmin reports whether the caller holds the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
