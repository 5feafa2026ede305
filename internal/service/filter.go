package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/pkg/gemini"
)

// maxPromptPosts caps how many posts are embedded in the
// classification prompt.
const maxPromptPosts = 100

// FilterSource records which path produced a filter result.
type FilterSource string

const (
	FilterSourceModel     FilterSource = "model"
	FilterSourceHeuristic FilterSource = "heuristic"
)

// FilterResult is the outcome of the personal-content filter: both
// feeds, each capped at domain.MaxCachedPosts.
type FilterResult struct {
	Photos    []domain.Post
	Videos    []domain.Post
	Reasoning string
	Source    FilterSource
}

// PersonalContentFilter partitions normalized posts into the target
// account's personal photo and video content. The model path never
// blocks the pipeline: any classification failure degrades to the
// deterministic heuristic.
type PersonalContentFilter struct {
	classifier gemini.Classifier
	retry      RetryConfig
	logger     *slog.Logger
}

// NewPersonalContentFilter creates a new filter.
func NewPersonalContentFilter(classifier gemini.Classifier, retry RetryConfig, logger *slog.Logger) *PersonalContentFilter {
	return &PersonalContentFilter{
		classifier: classifier,
		retry:      retry,
		logger:     logger,
	}
}

// FilterPersonal selects the posts that represent the target account's
// own photo and video content. It never returns an error.
func (f *PersonalContentFilter) FilterPersonal(ctx context.Context, posts []domain.Post, targetUsername string) *FilterResult {
	if len(posts) == 0 {
		return &FilterResult{
			Photos: []domain.Post{},
			Videos: []domain.Post{},
			Source: FilterSourceHeuristic,
		}
	}

	prompt := buildClassificationPrompt(posts, targetUsername)

	classification, err := Retry(ctx, f.retry, func() (*gemini.Classification, error) {
		return f.classifier.ClassifyPersonalContent(ctx, prompt)
	})
	if err != nil {
		f.logger.Warn("classification failed, using heuristic fallback",
			"username", targetUsername,
			"error", err,
		)
		result := heuristicFilter(posts, targetUsername)
		return result
	}

	byID := make(map[domain.PostID]domain.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	photos := selectByIDs(byID, classification.PhotoIDs)
	videos := selectByIDs(byID, classification.VideoIDs)

	return &FilterResult{
		Photos:    capPosts(photos),
		Videos:    capPosts(videos),
		Reasoning: classification.Reasoning,
		Source:    FilterSourceModel,
	}
}

// heuristicFilter is the deterministic fallback: a post counts as the
// target's photo content when the author username equals the target
// (case-sensitive) and at least one photo media is attached; as video
// content when the author matches and at least one video or animated
// GIF is attached.
func heuristicFilter(posts []domain.Post, targetUsername string) *FilterResult {
	photos := make([]domain.Post, 0, len(posts))
	videos := make([]domain.Post, 0, len(posts))

	for _, p := range posts {
		if p.AuthorUsername != targetUsername {
			continue
		}
		if p.HasPhoto() {
			photos = append(photos, p)
		}
		if p.HasVideo() {
			videos = append(videos, p)
		}
	}

	return &FilterResult{
		Photos: capPosts(photos),
		Videos: capPosts(videos),
		Source: FilterSourceHeuristic,
	}
}

// selectByIDs maps model-selected ids back to posts, preserving the
// model's ordering and dropping ids it invented.
func selectByIDs(byID map[domain.PostID]domain.Post, ids []string) []domain.Post {
	out := make([]domain.Post, 0, len(ids))
	seen := make(map[domain.PostID]bool, len(ids))
	for _, id := range ids {
		pid := domain.PostID(id)
		if seen[pid] {
			continue
		}
		post, ok := byID[pid]
		if !ok {
			continue
		}
		seen[pid] = true
		out = append(out, post)
	}
	return out
}

func capPosts(posts []domain.Post) []domain.Post {
	if len(posts) > domain.MaxCachedPosts {
		return posts[:domain.MaxCachedPosts]
	}
	return posts
}

// buildClassificationPrompt embeds the post listing (capped) and
// instructs the model to partition post ids by media kind for the
// target account only.
func buildClassificationPrompt(posts []domain.Post, targetUsername string) string {
	if len(posts) > maxPromptPosts {
		posts = posts[:maxPromptPosts]
	}

	var sb strings.Builder
	sb.WriteString("You are classifying posts from the X account @")
	sb.WriteString(targetUsername)
	sb.WriteString(".\n\n")
	sb.WriteString("Select only posts that are the account's OWN personal photo or video content. ")
	sb.WriteString("Exclude retweets, replies, mentions of other accounts, promotional reposts, and incidental media.\n\n")
	sb.WriteString("Posts:\n")

	for _, p := range posts {
		kinds := make([]string, 0, len(p.Media))
		for _, m := range p.Media {
			kinds = append(kinds, string(m.Kind))
		}
		text := strings.ReplaceAll(p.Text, "\n", " ")
		if len(text) > 200 {
			text = text[:200]
		}
		fmt.Fprintf(&sb, "- id=%s author=@%s media=[%s] text=%q\n",
			p.ID, p.AuthorUsername, strings.Join(kinds, ","), text)
	}

	sb.WriteString("\nReturn your answer as JSON with exactly these fields:\n")
	sb.WriteString(`{"photos":["<post id>",...],"videos":["<post id>",...],"reasoning":"<one short sentence>"}` + "\n")
	sb.WriteString("photos: ids of posts with the account's own photo content. ")
	sb.WriteString("videos: ids of posts with the account's own video or GIF content.\n")
	sb.WriteString("Return ONLY valid JSON, no markdown, no explanation.")

	return sb.String()
}
