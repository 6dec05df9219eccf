package model

import "time"

// User represents a row in the `users` table. Username and email are
// stored lowercase and trimmed; both carry unique indexes. PasswordHash
// holds the bcrypt digest and is never serialized. RefreshToken holds the
// single live refresh token for the account (empty when logged out); a
// login or refresh overwrites it, which is what invalidates every
// previously issued refresh token for the user.
type User struct {
	ID            uint64    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	PasswordHash  string    `json:"-"`
	RefreshToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sanitized returns a copy with the credential fields blanked, suitable
// for attaching to a request context or returning to a client.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}
