// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published when a new account is created. It
// carries enough for downstream consumers (welcome mail, analytics, audit
// log) without querying the primary database.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	RegisteredAt string `json:"registered_at"`
}
