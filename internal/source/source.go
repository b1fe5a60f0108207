// Package source defines the contract shared by the four content source
// adapters (reddit, x, daily.dev, youtube): the raw item shape they all parse
// into, the depth tiers controlling result volume, and the transport error
// type that distinguishes API failures from empty results.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gauthierbraillon/lookback/internal/dates"
)

// Depth selects a result-volume tier. Each adapter maps it to its own
// backend parameter (result limit, minimum-engagement floor, page count).
type Depth string

const (
	DepthQuick   Depth = "quick"
	DepthDefault Depth = "default"
	DepthDeep    Depth = "deep"
)

// Item is a raw-parsed result from one adapter, before normalization.
// Relevance is nil when the backend did not provide an estimate.
type Item struct {
	ID          string
	Title       string
	URL         string
	Identity    string // subreddit, author handle, publication, or channel
	Date        string // YYYY-MM-DD, empty when unknown
	Engagement  map[string]int64
	Relevance   *float64
	WhyRelevant string
}

// Result is what one adapter task returns: the parsed items, the unmodified
// raw response kept for auditability, and the transport error if any.
// A parse failure yields empty Items with a nil Err.
type Result struct {
	Items []Item
	Raw   json.RawMessage
	Err   error
}

// Adapter is implemented by each source client. Run performs the search and
// parse for one source; it must not panic and must not return a transport
// error for malformed-but-successful responses.
type Adapter interface {
	Name() string
	Run(ctx context.Context, topic string, w dates.Window, depth Depth) Result
}

// HTTPClient allows injecting a custom HTTP client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError reports a transport or auth failure (non-2xx status or network
// error). It is distinguishable from "zero results" via errors.As.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Source, e.Message)
}

// StatusError builds an APIError with a human-readable hint for common codes.
func StatusError(sourceName string, statusCode int) *APIError {
	var msg string
	switch statusCode {
	case http.StatusUnauthorized:
		msg = "authentication failed - check your API key"
	case http.StatusForbidden:
		msg = "access denied - check your plan or permissions"
	case http.StatusTooManyRequests:
		msg = "rate limit exceeded - please try again later"
	case http.StatusServiceUnavailable:
		msg = "temporarily unavailable - please try again in a few minutes"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		msg = "server error - please try again later"
	default:
		msg = "request failed"
	}
	return &APIError{Source: sourceName, StatusCode: statusCode, Message: msg}
}

// Float returns a pointer to v, for setting Item.Relevance.
func Float(v float64) *float64 { return &v }
