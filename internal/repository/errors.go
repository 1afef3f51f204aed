// Package repository implements MySQL persistence for users, catalog,
// seats, carts, messages and service requests.  Queries are plain
// database/sql with `?` placeholders; multi-statement writes run inside a
// transaction that is rolled back unless explicitly committed.
//
// The sentinel values below let the service layer distinguish failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate name or deleting a row that is
// still referenced.
var ErrConflict = errors.New("conflict")

// ErrSeatTaken is returned when a seat already backs a non-terminal request
// whose time window overlaps the requested one.
var ErrSeatTaken = errors.New("seat already booked for an overlapping window")

// MaxItemQuantity bounds the quantity of one product on a cart line or a
// request line.
const MaxItemQuantity = 99

// ErrQuantityLimit is returned when merging lines would push a request line
// past MaxItemQuantity.
var ErrQuantityLimit = errors.New("line quantity limit exceeded")

// ErrEmailExists is returned when registering an email that is already in
// use.
var ErrEmailExists = errors.New("email already exists")
