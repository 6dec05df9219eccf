package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/video-share-backend/internal/model"
)

// ChannelRepo serves the two aggregation read models: the channel page
// (subscriber counts) and a user's watch history.
type ChannelRepo struct{ DB *sql.DB }

func NewChannelRepo(db *sql.DB) *ChannelRepo { return &ChannelRepo{DB: db} }

// GetProfile returns the channel page for username as seen by viewerID:
// public fields, subscriber/subscribed-to counts and whether the viewer
// subscribes to the channel.
func (r *ChannelRepo) GetProfile(ctx context.Context, username string, viewerID uint64) (model.ChannelProfile, error) {
	var (
		p     model.ChannelProfile
		av    sql.NullString
		cover sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.full_name, u.avatar_url, u.cover_image_url,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscribers,
		       (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to,
		       EXISTS(SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?) AS viewer_subscribed
		FROM users u WHERE u.username = ? LIMIT 1`,
		viewerID, username).Scan(
		&p.ID, &p.Username, &p.FullName, &av, &cover,
		&p.Subscribers, &p.SubscribedTo, &p.ViewerSubscribed)
	if err == sql.ErrNoRows {
		return model.ChannelProfile{}, ErrUserNotFound
	}
	if err != nil {
		return model.ChannelProfile{}, err
	}
	p.AvatarURL = av.String
	p.CoverImageURL = cover.String
	return p, nil
}

// WatchHistory returns the user's most recently watched videos joined
// with their owning channels, newest first.
func (r *ChannelRepo) WatchHistory(ctx context.Context, userID uint64, limit int) ([]model.WatchEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT v.id, v.owner_id, v.title, v.thumbnail_url, v.duration_secs, v.views, v.created_at,
		       o.id, o.username, o.full_name, o.avatar_url,
		       w.watched_at
		FROM watch_history w
		JOIN videos v ON v.id = w.video_id
		JOIN users  o ON o.id = v.owner_id
		WHERE w.user_id = ?
		ORDER BY w.watched_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]model.WatchEntry, 0, limit)
	for rows.Next() {
		var (
			e      model.WatchEntry
			thumb  sql.NullString
			avatar sql.NullString
		)
		if err := rows.Scan(
			&e.Video.ID, &e.Video.OwnerID, &e.Video.Title, &thumb,
			&e.Video.DurationSecs, &e.Video.Views, &e.Video.CreatedAt,
			&e.Channel.ID, &e.Channel.Username, &e.Channel.FullName, &avatar,
			&e.WatchedAt); err != nil {
			return nil, err
		}
		e.Video.ThumbnailURL = thumb.String
		e.Channel.AvatarURL = avatar.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
