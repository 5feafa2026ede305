// Package twitter is a minimal bearer-token client for the X API v2
// endpoints the media pipeline needs: username lookup and the user
// tweets timeline with media and author expansions.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/iconidentify/facepass/internal/domain"
)

// Config holds client configuration.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	UserAgent     string
}

// Client fetches user and timeline data from the X API v2.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     TokenSource
}

// NewClient creates a new X API client. Tokens are resolved per call
// through the TokenSource so admin overrides take effect immediately.
func NewClient(cfg Config, tokens TokenSource) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twitter.com/2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		tokens:  tokens,
	}
}

// User is the resolved platform account for a username.
type User struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// TimelineBatch is the raw timeline response: posts plus the expansion
// objects their attachment keys and author ids resolve against.
type TimelineBatch struct {
	Posts    []RawPost
	Media    []RawMedia
	Users    []User
	RateHint string // x-rate-limit-remaining, informational only
}

// RawPost is one post as returned by the timeline endpoint.
type RawPost struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	CreatedAt   string `json:"created_at"`
	AuthorID    string `json:"author_id"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

// RawMedia is one media object from the response includes.
type RawMedia struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
	Variants        []struct {
		BitRate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	} `json:"variants"`
}

// LookupUser resolves a username to its numeric platform id.
func (c *Client) LookupUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("empty username")
	}
	u := fmt.Sprintf("%s/users/by/username/%s?user.fields=profile_image_url", c.baseURL, url.PathEscape(username))

	var raw struct {
		Data User `json:"data"`
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, err
	}
	if raw.Data.ID == "" {
		if len(raw.Errors) > 0 {
			return nil, fmt.Errorf("user lookup: %s", raw.Errors[0].Title)
		}
		return nil, fmt.Errorf("user lookup: empty response")
	}
	return &raw.Data, nil
}

// FetchTimeline returns up to limit most recent original posts for a
// user id, excluding retweets and replies, with media and author
// expansions inlined in the one call.
func (c *Client) FetchTimeline(ctx context.Context, userID string, limit int) (*TimelineBatch, error) {
	if userID == "" {
		return nil, fmt.Errorf("empty user id")
	}
	if limit < 5 {
		limit = 5
	}
	if limit > 100 {
		limit = 100
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("exclude", "retweets,replies")
	q.Set("expansions", "attachments.media_keys,author_id")
	q.Set("tweet.fields", "created_at,attachments,author_id")
	q.Set("media.fields", "media_key,type,url,preview_image_url,variants")
	q.Set("user.fields", "username,name,profile_image_url")
	u := fmt.Sprintf("%s/users/%s/tweets?%s", c.baseURL, url.PathEscape(userID), q.Encode())

	var raw struct {
		Data     []RawPost `json:"data"`
		Includes struct {
			Media []RawMedia `json:"media"`
			Users []User     `json:"users"`
		} `json:"includes"`
	}
	rateHint, err := c.getWithRate(ctx, u, &raw)
	if err != nil {
		return nil, err
	}

	return &TimelineBatch{
		Posts:    raw.Data,
		Media:    raw.Includes.Media,
		Users:    raw.Includes.Users,
		RateHint: rateHint,
	}, nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	_, err := c.getWithRate(ctx, u, out)
	return err
}

func (c *Client) getWithRate(ctx context.Context, u string, out interface{}) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return resp.Header.Get("x-rate-limit-remaining"), nil
}
