package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gauthierbraillon/lookback/internal/source"
)

const enrichUserAgent = "lookback/1.0 (topic research aggregator)"

// EnricherOption configures the Enricher.
type EnricherOption func(*Enricher)

// WithEnrichHTTPClient sets a custom HTTP client.
func WithEnrichHTTPClient(httpClient source.HTTPClient) EnricherOption {
	return func(e *Enricher) { e.httpClient = httpClient }
}

// WithEnrichLimiter replaces the request rate limiter.
func WithEnrichLimiter(limiter *rate.Limiter) EnricherOption {
	return func(e *Enricher) { e.limiter = limiter }
}

// WithCannedThread makes Enrich parse raw instead of fetching the thread.
func WithCannedThread(raw json.RawMessage) EnricherOption {
	return func(e *Enricher) { e.canned = raw }
}

// Enricher fetches real engagement data for discovered threads from Reddit's
// public JSON endpoint. Calls are rate limited to keep the batch polite; the
// enrichment pass itself runs strictly sequentially.
type Enricher struct {
	httpClient source.HTTPClient
	limiter    *rate.Limiter
	canned     json.RawMessage
}

// NewEnricher creates an enricher with a two-requests-per-second ceiling.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns a copy of item with engagement counters (and, when the
// thread reports one, a corrected date) from the live thread data. The input
// item is never modified; on any failure the caller keeps the original.
func (e *Enricher) Enrich(ctx context.Context, item source.Item) (source.Item, error) {
	raw := e.canned
	if raw == nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return item, err
		}
		fetched, err := e.fetchThread(ctx, item.URL)
		if err != nil {
			return item, err
		}
		raw = fetched
	}

	post, err := parseThread(raw)
	if err != nil {
		return item, err
	}

	enriched := item
	enriched.Engagement = map[string]int64{
		"score":    max64(post.Score, 0),
		"comments": max64(post.NumComments, 0),
	}
	if post.UpvoteRatio > 0 {
		enriched.Engagement["upvote_percent"] = int64(post.UpvoteRatio * 100)
	}
	if post.CreatedUTC > 0 {
		enriched.Date = time.Unix(int64(post.CreatedUTC), 0).UTC().Format("2006-01-02")
	}
	return enriched, nil
}

func (e *Enricher) fetchThread(ctx context.Context, threadURL string) (json.RawMessage, error) {
	url := strings.TrimRight(threadURL, "/") + ".json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", enrichUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &source.APIError{Source: "reddit", Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read thread: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, source.StatusError("reddit", resp.StatusCode)
	}
	return body, nil
}

type threadPost struct {
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
}

// parseThread reads the first post out of Reddit's two-listing thread
// payload: [postListing, commentListing].
func parseThread(raw json.RawMessage) (threadPost, error) {
	var listings []struct {
		Data struct {
			Children []struct {
				Data threadPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &listings); err != nil {
		return threadPost{}, fmt.Errorf("failed to parse thread payload: %w", err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return threadPost{}, fmt.Errorf("thread payload has no post data")
	}
	return listings[0].Data.Children[0].Data, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
