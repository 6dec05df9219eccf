// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let higher layers such as the
// session service and handlers branch on failure kind instead of
// matching on driver errors.
package repository

import "errors"

// ErrUserNotFound is returned when no user row matches the lookup.
// Handlers translate this into an HTTP 404 (or 401 on auth paths, where
// revealing existence would leak information).
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateUser is returned when an insert or update violates the
// unique username/email indexes. Handlers translate this into HTTP 409.
var ErrDuplicateUser = errors.New("username or email already exists")
