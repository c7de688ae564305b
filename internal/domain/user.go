package domain

import "time"

// User is a directory entry for the current user or a peer. Profiles are
// immutable inside the sync core; the only mutation path is the explicit
// profile update operation proxied to the remote service.
type User struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// ProfileUpdate carries the writable subset of a profile.
type ProfileUpdate struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}
