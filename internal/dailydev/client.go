// Package dailydev provides a developer-article search client for the
// daily.dev public API.
package dailydev

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

const defaultBaseURL = "https://api.daily.dev"

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

// Client searches daily.dev posts.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient source.HTTPClient
	canned     json.RawMessage
}

// NewClient creates a new daily.dev search client.
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
func (c *Client) Name() string { return "dailydev" }

// Search issues one post search scoped to the last month, with the result
// limit mapped from the depth tier.
func (c *Client) Search(ctx context.Context, topic string, w dates.Window, depth source.Depth) (json.RawMessage, error) {
	if c.canned != nil {
		return c.canned, nil
	}

	limit, ok := depthLimits[depth]
	if !ok {
		limit = depthLimits[source.DepthDefault]
	}

	reqURL := fmt.Sprintf("%s/public/v1/search/posts?q=%s&time=month&limit=%d",
		c.baseURL, url.QueryEscape(topic), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

// Parse extracts article items. Posts without both a title and a URL are
// skipped; malformed payloads yield an empty list.
func (c *Client) Parse(raw json.RawMessage) []source.Item {
	var envelope struct {
		Posts []json.RawMessage `json:"posts"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}

	type post struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		CreatedAt string `json:"createdAt"`
		Source    struct {
			Name string `json:"name"`
		} `json:"source"`
		Summary  string `json:"summary"`
		Upvotes  int64  `json:"upvotes"`
		Comments int64  `json:"comments"`
		ReadTime int64  `json:"readTime"`
	}

	total := len(envelope.Posts)
	items := make([]source.Item, 0, total)

	for i, rawPost := range envelope.Posts {
		var p post
		if err := json.Unmarshal(rawPost, &p); err != nil {
			continue
		}

		title := strings.TrimSpace(p.Title)
		postURL := strings.TrimSpace(p.URL)
		if title == "" || postURL == "" {
			continue
		}

		engagement := map[string]int64{
			"score":    max64(p.Upvotes, 0),
			"comments": max64(p.Comments, 0),
		}
		if p.ReadTime > 0 {
			engagement["read_time"] = p.ReadTime
		}

		items = append(items, source.Item{
			ID:         fmt.Sprintf("DD%d", i+1),
			Title:      title,
			URL:        postURL,
			Identity:   strings.TrimSpace(p.Source.Name),
			Date:       isoDate(p.CreatedAt),
			Engagement: engagement,
			Relevance:  source.Float(scoring.DailyDev.Relevance(i, total, engagement)),
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

// isoDate takes the date part of an ISO timestamp, or "" when malformed.
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
