package domain

import (
	"time"
)

// PostID is a unique identifier for a post on the platform.
type PostID string

// String returns the string representation of the PostID.
func (id PostID) String() string {
	return string(id)
}

// MediaKind represents the platform's media typing. It is taken from
// the upstream response as-is and never recomputed.
type MediaKind string

const (
	MediaKindPhoto MediaKind = "photo"
	MediaKindVideo MediaKind = "video"
	MediaKindGIF   MediaKind = "animated_gif"
)

// CacheKind selects which filtered feed a cache entry holds.
type CacheKind string

const (
	CacheKindPhotos CacheKind = "photos"
	CacheKindVideos CacheKind = "videos"
)

// Valid reports whether the kind is one of the two feed kinds.
func (k CacheKind) Valid() bool {
	return k == CacheKindPhotos || k == CacheKindVideos
}

// Post represents a single original post with its resolved media and
// author metadata.
type Post struct {
	ID              PostID  `json:"id"`
	Text            string  `json:"text,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"` // RFC3339 string as returned by the platform
	AuthorUsername  string  `json:"username"`
	AuthorAvatarURL string  `json:"avatar_url,omitempty"`
	Media           []Media `json:"media"`
}

// Media represents one media attachment of a post.
type Media struct {
	Key        string    `json:"media_key"`
	Kind       MediaKind `json:"type"`
	URL        string    `json:"url,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	Variants   []Variant `json:"variants,omitempty"` // videos only
}

// Variant is one bitrate/URL pair of a video.
type Variant struct {
	Bitrate int    `json:"bitrate,omitempty"`
	URL     string `json:"url"`
}

// HasMedia returns true if the post has at least one media attachment.
func (p *Post) HasMedia() bool {
	return len(p.Media) > 0
}

// HasPhoto returns true if the post contains photo media.
func (p *Post) HasPhoto() bool {
	for _, m := range p.Media {
		if m.Kind == MediaKindPhoto {
			return true
		}
	}
	return false
}

// HasVideo returns true if the post contains video or animated GIF media.
func (p *Post) HasVideo() bool {
	for _, m := range p.Media {
		if m.Kind == MediaKindVideo || m.Kind == MediaKindGIF {
			return true
		}
	}
	return false
}

// MaxCachedPosts caps both filtered feeds persisted per cache entry.
const MaxCachedPosts = 25

// CachedMediaSet is the persisted filtered feed for one (username, kind)
// pair. It is written only after a fetch+filter cycle fully completes
// and lives until explicitly invalidated.
type CachedMediaSet struct {
	Username  string    `json:"username"`
	Kind      CacheKind `json:"kind"`
	Posts     []Post    `json:"data"`
	UpdatedAt time.Time `json:"timestamp"`
}
