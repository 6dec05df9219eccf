package model

import "time"

// Video represents a row in the `videos` table. Only the fields needed by
// the watch-history read model are mapped here; upload and transcoding
// live in a different service.
type Video struct {
	ID           uint64    `json:"id"`
	OwnerID      uint64    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	DurationSecs uint32    `json:"duration_secs"`
	Views        uint64    `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
}

// WatchEntry is one joined row of a user's watch history: the video, its
// owner's public channel fields, and when it was watched.
type WatchEntry struct {
	Video     Video     `json:"video"`
	Channel   Channel   `json:"channel"`
	WatchedAt time.Time `json:"watched_at"`
}
