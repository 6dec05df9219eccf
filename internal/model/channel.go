package model

// Channel is the public face of a user: the fields safe to show on a
// channel page, never credentials.
type Channel struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ChannelProfile is the aggregated channel page for one user as seen by
// another: subscriber counts plus whether the viewer is subscribed.
type ChannelProfile struct {
	Channel
	CoverImageURL    string `json:"cover_image_url,omitempty"`
	Subscribers      uint64 `json:"subscribers"`
	SubscribedTo     uint64 `json:"subscribed_to"`
	ViewerSubscribed bool   `json:"viewer_subscribed"`
}
