package store

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors shared by the store packages. Handlers map these onto HTTP
// status codes; everything else surfaces as a 500 with the cause logged
// server-side.
var (
	ErrNotFound           = errors.New("store: record not found")
	ErrDuplicateEmail     = errors.New("store: email already in use")
	ErrDateAlreadyBlocked = errors.New("store: date is already blocked")
	ErrActiveSubscription = errors.New("store: user already has an active subscription")
)

// uniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func uniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
