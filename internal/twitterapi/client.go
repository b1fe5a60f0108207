// Package twitterapi provides an X (Twitter) post search client backed by
// the twitterapi.io advanced search endpoint.
package twitterapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/scoring"
	"github.com/gauthierbraillon/lookback/internal/source"
)

const defaultBaseURL = "https://api.twitterapi.io"

// Posts longer than this are truncated at a rune boundary.
const maxTextLength = 500

// depthConfig maps a depth tier to the minimum-engagement floor embedded in
// the query and the page cap for cursor pagination.
type depthConfig struct {
	minFaves int
	maxPages int
}

var depthConfigs = map[source.Depth]depthConfig{
	source.DepthQuick:   {minFaves: 5, maxPages: 1},
	source.DepthDefault: {minFaves: 3, maxPages: 2},
	source.DepthDeep:    {minFaves: 2, maxPages: 3},
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

// Client searches X posts via twitterapi.io.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient source.HTTPClient
	canned     json.RawMessage
}

// NewClient creates a new twitterapi.io client.
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
func (c *Client) Name() string { return "x" }

// BuildQuery assembles the advanced search query string: topic, date window,
// English only, retweets excluded, and the depth-dependent likes floor.
func BuildQuery(topic string, w dates.Window, depth source.Depth) string {
	cfg, ok := depthConfigs[depth]
	if !ok {
		cfg = depthConfigs[source.DepthDefault]
	}
	return fmt.Sprintf("%s since:%s until:%s lang:en -filter:retweets min_faves:%d",
		topic, w.From, w.To, cfg.minFaves)
}

// Search pages through advanced search results following the cursor token,
// up to the depth's page cap. It stops early on an empty page, a missing
// cursor, or has_next_page=false. A first-page failure is returned as an
// error; later-page failures keep the partial results.
func (c *Client) Search(ctx context.Context, topic string, w dates.Window, depth source.Depth) (json.RawMessage, error) {
	if c.canned != nil {
		return c.canned, nil
	}

	cfg, ok := depthConfigs[depth]
	if !ok {
		cfg = depthConfigs[source.DepthDefault]
	}
	query := BuildQuery(topic, w, depth)

	var all []json.RawMessage
	cursor := ""

	for page := 0; page < cfg.maxPages; page++ {
		pageResp, err := c.fetchPage(ctx, query, cursor)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			break
		}

		if len(pageResp.Tweets) == 0 {
			break
		}
		all = append(all, pageResp.Tweets...)

		if !pageResp.HasNextPage || pageResp.NextCursor == "" {
			break
		}
		cursor = pageResp.NextCursor
	}

	combined, err := json.Marshal(struct {
		Tweets []json.RawMessage `json:"tweets"`
	}{Tweets: all})
	if err != nil {
		return nil, fmt.Errorf("failed to combine pages: %w", err)
	}
	return combined, nil
}

type pageResponse struct {
	Tweets      []json.RawMessage `json:"tweets"`
	HasNextPage bool              `json:"has_next_page"`
	NextCursor  string            `json:"next_cursor"`
}

func (c *Client) fetchPage(ctx context.Context, query, cursor string) (*pageResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("queryType", "Top")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	reqURL := c.baseURL + "/twitter/tweet/advanced_search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
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

	var page pageResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return &page, nil
}

// Parse extracts post items from a combined search response. Entries missing
// both a URL and the author/id pair to synthesize one are dropped; malformed
// payloads yield an empty list.
func (c *Client) Parse(raw json.RawMessage) []source.Item {
	var envelope struct {
		Tweets []json.RawMessage `json:"tweets"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}

	type tweet struct {
		ID     string `json:"id"`
		Text   string `json:"text"`
		URL    string `json:"url"`
		Author struct {
			UserName string `json:"userName"`
		} `json:"author"`
		CreatedAt    string `json:"createdAt"`
		LikeCount    int64  `json:"likeCount"`
		RetweetCount int64  `json:"retweetCount"`
		ReplyCount   int64  `json:"replyCount"`
		QuoteCount   int64  `json:"quoteCount"`
	}

	total := len(envelope.Tweets)
	items := make([]source.Item, 0, total)

	for i, rawTweet := range envelope.Tweets {
		var t tweet
		if err := json.Unmarshal(rawTweet, &t); err != nil {
			continue
		}

		handle := strings.TrimPrefix(strings.TrimSpace(t.Author.UserName), "@")

		postURL := t.URL
		if postURL == "" {
			if handle == "" || t.ID == "" {
				continue
			}
			postURL = fmt.Sprintf("https://x.com/%s/status/%s", handle, t.ID)
		}

		engagement := map[string]int64{
			"likes":   max64(t.LikeCount, 0),
			"reposts": max64(t.RetweetCount, 0),
			"replies": max64(t.ReplyCount, 0),
			"quotes":  max64(t.QuoteCount, 0),
		}

		items = append(items, source.Item{
			ID:         fmt.Sprintf("X%d", i+1),
			Title:      truncate(strings.TrimSpace(t.Text), maxTextLength),
			URL:        postURL,
			Identity:   handle,
			Date:       ParseCreatedAt(t.CreatedAt),
			Engagement: engagement,
			Relevance:  source.Float(scoring.X.Relevance(i, total, engagement)),
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

// ParseCreatedAt converts a tweet timestamp to YYYY-MM-DD. It accepts the
// classic Twitter format ("Wed Jan 15 14:30:00 +0000 2026") and anything
// starting with an ISO date. Unparseable input yields "".
func ParseCreatedAt(createdAt string) string {
	createdAt = strings.TrimSpace(createdAt)
	if createdAt == "" {
		return ""
	}

	if len(createdAt) >= 10 {
		if _, ok := dates.Parse(createdAt[:10]); ok {
			return createdAt[:10]
		}
	}

	if t, err := time.Parse("Mon Jan 2 15:04:05 -0700 2006", createdAt); err == nil {
		return t.Format("2006-01-02")
	}
	return ""
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
