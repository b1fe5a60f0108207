// Package youtube provides a video search client backed by the TubeLab
// outlier search API.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/scoring"
	"github.com/gauthierbraillon/lookback/internal/source"
)

const defaultBaseURL = "https://api.tubelab.net"

var depthLimits = map[source.Depth]int{
	source.DepthQuick:   10,
	source.DepthDefault: 20,
	source.DepthDeep:    50,
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient source.HTTPClient) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithCannedResponse makes Search return raw instead of calling the API.
func WithCannedResponse(raw json.RawMessage) ClientOption {
	return func(c *Client) { c.canned = raw }
}

// Client searches YouTube videos via TubeLab.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient source.HTTPClient
	canned     json.RawMessage
}

// NewClient creates a new TubeLab search client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies this adapter in logs and reports.
func (c *Client) Name() string { return "youtube" }

// Search issues one outlier search with the result limit mapped from the
// depth tier.
func (c *Client) Search(ctx context.Context, topic string, w dates.Window, depth source.Depth) (json.RawMessage, error) {
	if c.canned != nil {
		return c.canned, nil
	}

	limit, ok := depthLimits[depth]
	if !ok {
		limit = depthLimits[source.DepthDefault]
	}

	reqURL := fmt.Sprintf("%s/search/outliers?q=%s&limit=%d",
		c.baseURL, url.QueryEscape(topic), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.APIError{Source: c.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, source.StatusError(c.Name(), resp.StatusCode)
	}
	return body, nil
}

// Parse extracts video items. The playback URL is synthesized from the video
// identifier; videos missing an id or title are skipped, and malformed
// payloads yield an empty list.
func (c *Client) Parse(raw json.RawMessage) []source.Item {
	var envelope struct {
		Videos []json.RawMessage `json:"videos"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}

	type video struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		ChannelName string `json:"channelName"`
		PublishedAt string `json:"publishedAt"`
		Views       int64  `json:"views"`
		Likes       int64  `json:"likes"`
		Comments    int64  `json:"comments"`
	}

	total := len(envelope.Videos)
	items := make([]source.Item, 0, total)

	for i, rawVideo := range envelope.Videos {
		var v video
		if err := json.Unmarshal(rawVideo, &v); err != nil {
			continue
		}

		title := strings.TrimSpace(v.Title)
		if v.ID == "" || title == "" {
			continue
		}

		engagement := map[string]int64{
			"views":    max64(v.Views, 0),
			"likes":    max64(v.Likes, 0),
			"comments": max64(v.Comments, 0),
		}

		items = append(items, source.Item{
			ID:         fmt.Sprintf("YT%d", i+1),
			Title:      title,
			URL:        fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID),
			Identity:   strings.TrimSpace(v.ChannelName),
			Date:       isoDate(v.PublishedAt),
			Engagement: engagement,
			Relevance:  source.Float(scoring.YouTube.Relevance(i, total, engagement)),
		})
	}
	return items
}

// Run performs search and parse for the pipeline fan-out.
func (c *Client) Run(ctx context.Context, topic string, w dates.Window, depth source.Depth) source.Result {
	raw, err := c.Search(ctx, topic, w, depth)
	if err != nil {
		return source.Result{Raw: raw, Err: err}
	}
	return source.Result{Items: c.Parse(raw), Raw: raw}
}

func isoDate(timestamp string) string {
	if len(timestamp) < 10 {
		return ""
	}
	if _, ok := dates.Parse(timestamp[:10]); !ok {
		return ""
	}
	return timestamp[:10]
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
