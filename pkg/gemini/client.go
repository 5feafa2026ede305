// Package gemini interfaces with the Gemini generateContent API for
// personal-content classification.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMalformedResponse is returned when the model's answer cannot be
// decoded into the expected classification shape.
var ErrMalformedResponse = errors.New("malformed model response")

// Classifier partitions a post listing into personal photo and video
// content for one target account.
type Classifier interface {
	// ClassifyPersonalContent sends the prompt and returns the model's
	// decoded classification. A response that cannot be decoded into
	// the expected shape fails with ErrMalformedResponse (wrapped);
	// callers are expected to fall back.
	ClassifyPersonalContent(ctx context.Context, prompt string) (*Classification, error)
}

// Classification is the strictly decoded model output: post ids
// partitioned by media kind, plus the model's stated reasoning.
type Classification struct {
	PhotoIDs  []string `json:"photos"`
	VideoIDs  []string `json:"videos"`
	Reasoning string   `json:"reasoning"`
}

// Config holds Gemini API configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// HTTPClient implements Classifier using HTTP requests to the Gemini API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a new Gemini API client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateRequest is the request body for the generateContent API.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse is the response from the generateContent API.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// ClassifyPersonalContent sends the classification prompt and decodes
// the model's JSON answer.
func (c *HTTPClient) ClassifyPersonalContent(ctx context.Context, prompt string) (*Classification, error) {
	genReq := generateRequest{
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: prompt}},
			},
		},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if genResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", genResp.Error.Message)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	return DecodeClassification(genResp.Candidates[0].Content.Parts[0].Text)
}

// DecodeClassification strictly decodes the model's answer. It strips
// an optional markdown code fence, then requires valid JSON with the
// photos/videos fields present.
func DecodeClassification(text string) (*Classification, error) {
	content := strings.TrimSpace(text)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()

	var result Classification
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.PhotoIDs == nil && result.VideoIDs == nil {
		return nil, fmt.Errorf("%w: missing photos/videos fields", ErrMalformedResponse)
	}
	return &result, nil
}
