package service

import (
	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/pkg/twitter"
)

// Normalize associates each raw post with its media attachments and
// author metadata, resolved from the batch's expansion objects. Posts
// whose resolved media list is empty are dropped. Upstream order
// (reverse-chronological) is preserved.
func Normalize(batch *twitter.TimelineBatch) []domain.Post {
	if batch == nil {
		return nil
	}

	mediaByKey := make(map[string]twitter.RawMedia, len(batch.Media))
	for _, m := range batch.Media {
		mediaByKey[m.MediaKey] = m
	}
	usersByID := make(map[string]twitter.User, len(batch.Users))
	for _, u := range batch.Users {
		usersByID[u.ID] = u
	}

	posts := make([]domain.Post, 0, len(batch.Posts))
	for _, raw := range batch.Posts {
		media := make([]domain.Media, 0, len(raw.Attachments.MediaKeys))
		for _, key := range raw.Attachments.MediaKeys {
			rm, ok := mediaByKey[key]
			if !ok {
				continue
			}
			media = append(media, normalizeMedia(rm))
		}
		if len(media) == 0 {
			continue
		}

		post := domain.Post{
			ID:        domain.PostID(raw.ID),
			Text:      raw.Text,
			CreatedAt: raw.CreatedAt,
			Media:     media,
		}
		if author, ok := usersByID[raw.AuthorID]; ok {
			post.AuthorUsername = author.Username
			post.AuthorAvatarURL = author.ProfileImageURL
		}

		posts = append(posts, post)
	}

	return posts
}

func normalizeMedia(rm twitter.RawMedia) domain.Media {
	m := domain.Media{
		Key:        rm.MediaKey,
		Kind:       domain.MediaKind(rm.Type),
		URL:        rm.URL,
		PreviewURL: rm.PreviewImageURL,
	}
	for _, v := range rm.Variants {
		// mp4 variants only; HLS playlists are not servable media URLs here
		if v.ContentType != "" && v.ContentType != "video/mp4" {
			continue
		}
		m.Variants = append(m.Variants, domain.Variant{
			Bitrate: v.BitRate,
			URL:     v.URL,
		})
	}
	// Videos often carry no top-level URL; fall back to the best variant.
	if m.URL == "" && len(m.Variants) > 0 {
		best := m.Variants[0]
		for _, v := range m.Variants[1:] {
			if v.Bitrate > best.Bitrate {
				best = v
			}
		}
		m.URL = best.URL
	}
	return m
}
