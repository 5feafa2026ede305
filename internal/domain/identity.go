package domain

import (
	"time"
)

// AdminIdentity maps an internal admin account to its linked platform
// account. TwitterUserID is discovered lazily on first use and cached
// back onto the record to avoid repeated username lookups.
type AdminIdentity struct {
	AdminID       string    `json:"admin_id"`
	Username      string    `json:"username"`
	TwitterUserID string    `json:"twitter_user_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	AvatarURL     string    `json:"photo_url,omitempty"`
	LinkedAt      time.Time `json:"authenticated_at"`
}

// BearerTokenConfig is the singleton admin-supplied bearer token
// override. When absent the service falls back to the statically
// configured token.
type BearerTokenConfig struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}
