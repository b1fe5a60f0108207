// Package reddit discovers Reddit threads about a topic through the OpenAI
// Responses API with web search constrained to reddit.com. The backend
// returns free text with an embedded JSON object; parsing is best-effort and
// never fails the run.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/source"
)

const defaultBaseURL = "https://api.openai.com"

// Threads below this count trigger the one-shot simplified-topic retry.
const recallBoostThreshold = 5

const searchPromptFormat = `Search Reddit for discussions about: %s

Focus on threads between %s and %s. Find %s high-quality, relevant threads.

IMPORTANT: Return ONLY valid JSON in this exact format, no other text:
{
  "items": [
    {
      "title": "Thread title",
      "url": "https://reddit.com/r/...",
      "subreddit": "subreddit_name",
      "date": "YYYY-MM-DD or null if unknown",
      "why_relevant": "Brief explanation of relevance",
      "relevance": 0.85
    }
  ]
}

Rules:
- relevance is 0.0 to 1.0 (1.0 = highly relevant)
- date must be YYYY-MM-DD format or null
- Include diverse subreddits if applicable
- Prefer threads with substantive discussions
- Do NOT include engagement metrics (upvotes, comments) - those will be fetched separately`

// Target thread counts requested from the backend per depth tier.
var depthTargets = map[source.Depth]string{
	source.DepthQuick:   "8-12",
	source.DepthDefault: "15-30",
	source.DepthDeep:    "50-70",
}

var (
	embeddedJSONRe = regexp.MustCompile(`\{[\s\S]*"items"[\s\S]*\}`)
	isoDateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Simplifier derives a simplified "core subject" from a topic for the
// recall-boost retry. Returning the topic unchanged disables the retry.
type Simplifier func(topic string) string

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
// The recall-boost retry is disabled in this mode.
func WithCannedResponse(raw json.RawMessage) ClientOption {
	return func(c *Client) { c.canned = raw }
}

// WithSimplifier replaces the core-subject heuristic used by the retry.
func WithSimplifier(s Simplifier) ClientOption {
	return func(c *Client) { c.simplify = s }
}

// Client searches Reddit threads via the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient source.HTTPClient
	canned     json.RawMessage
	simplify   Simplifier
}

// NewClient creates a Reddit discovery client using the given API key and model.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		simplify:   CoreSubject,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies this adapter in logs and reports.
func (c *Client) Name() string { return "reddit" }

// Search issues one web-search-backed discovery call and returns the raw
// response body. Transport and auth failures come back as *source.APIError.
func (c *Client) Search(ctx context.Context, topic string, w dates.Window, depth source.Depth) (json.RawMessage, error) {
	if c.canned != nil {
		return c.canned, nil
	}

	target, ok := depthTargets[depth]
	if !ok {
		target = depthTargets[source.DepthDefault]
	}

	payload := map[string]any{
		"model": c.model,
		"tools": []map[string]any{
			{
				"type": "web_search",
				"filters": map[string]any{
					"allowed_domains": []string{"reddit.com"},
				},
			},
		},
		"include": []string{"web_search_call.action.sources"},
		"input":   fmt.Sprintf(searchPromptFormat, topic, w.From, w.To, target),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &source.APIError{Source: c.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, source.StatusError(c.Name(), resp.StatusCode)
	}
	return respBody, nil
}

// Parse extracts thread items from the raw response. The backend wraps its
// JSON in prose, so the first brace-matched block containing an "items" key
// is decoded. Malformed payloads yield an empty list, never an error.
// Items whose URL does not contain reddit.com are dropped.
func (c *Client) Parse(raw json.RawMessage) []source.Item {
	text := outputText(raw)
	if text == "" {
		return nil
	}

	match := embeddedJSONRe.FindString(text)
	if match == "" {
		return nil
	}

	var envelope struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(match), &envelope); err != nil {
		return nil
	}

	items := make([]source.Item, 0, len(envelope.Items))
	for _, rawItem := range envelope.Items {
		var fields map[string]any
		if err := json.Unmarshal(rawItem, &fields); err != nil {
			continue
		}

		url := stringField(fields, "url")
		if url == "" || !strings.Contains(url, "reddit.com") {
			continue
		}

		date := stringField(fields, "date")
		if !isoDateRe.MatchString(date) {
			date = ""
		}

		relevance := floatField(fields, "relevance", 0.5)
		if relevance < 0 {
			relevance = 0
		} else if relevance > 1 {
			relevance = 1
		}

		items = append(items, source.Item{
			ID:          fmt.Sprintf("R%d", len(items)+1),
			Title:       strings.TrimSpace(stringField(fields, "title")),
			URL:         url,
			Identity:    strings.TrimPrefix(strings.TrimSpace(stringField(fields, "subreddit")), "r/"),
			Date:        date,
			Relevance:   source.Float(relevance),
			WhyRelevant: strings.TrimSpace(stringField(fields, "why_relevant")),
		})
	}
	return items
}

// Run performs search and parse, then, when results are sparse, retries once
// with a simplified core subject and merges threads not already seen by URL.
// The retry is best-effort: its failures are silently ignored.
func (c *Client) Run(ctx context.Context, topic string, w dates.Window, depth source.Depth) source.Result {
	raw, err := c.Search(ctx, topic, w, depth)
	if err != nil {
		return source.Result{Raw: raw, Err: err}
	}

	items := c.Parse(raw)

	if len(items) < recallBoostThreshold && c.canned == nil {
		core := c.simplify(topic)
		if core != "" && !strings.EqualFold(core, topic) {
			if retryRaw, retryErr := c.Search(ctx, core, w, depth); retryErr == nil {
				items = mergeUnseen(items, c.Parse(retryRaw))
			}
		}
	}

	return source.Result{Items: items, Raw: raw}
}

// mergeUnseen appends extra items whose URL was not already found,
// renumbering them so IDs stay unique within the merged list.
func mergeUnseen(items, extra []source.Item) []source.Item {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		seen[item.URL] = true
	}
	for _, item := range extra {
		if seen[item.URL] {
			continue
		}
		seen[item.URL] = true
		item.ID = fmt.Sprintf("R%d", len(items)+1)
		items = append(items, item)
	}
	return items
}

// CoreSubject is the default topic simplifier: it strips qualifier words and
// standalone years, keeping the substantive tokens. "how to tune Claude Code
// for beginners" becomes "tune Claude Code".
func CoreSubject(topic string) string {
	var kept []string
	for _, token := range strings.Fields(topic) {
		lower := strings.ToLower(strings.Trim(token, ".,!?:;"))
		if qualifierWords[lower] {
			continue
		}
		if len(lower) == 4 {
			if _, err := strconv.Atoi(lower); err == nil {
				continue
			}
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return topic
	}
	return strings.Join(kept, " ")
}

var qualifierWords = map[string]bool{
	"a": true, "an": true, "and": true, "best": true, "beginners": true,
	"for": true, "guide": true, "how": true, "in": true, "is": true,
	"latest": true, "new": true, "news": true, "of": true, "review": true,
	"reviews": true, "the": true, "tips": true, "to": true, "top": true,
	"tutorial": true, "update": true, "updates": true, "using": true,
	"versus": true, "vs": true, "what": true, "why": true, "with": true,
}

// outputText digs the model's text out of the response envelope. The
// Responses API nests it under output[].content[].text; older payloads use
// choices[].message.content or a plain output string.
func outputText(raw json.RawMessage) string {
	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}

	switch output := envelope["output"].(type) {
	case string:
		return output
	case []any:
		for _, node := range output {
			if text := nodeText(node); text != "" {
				return text
			}
		}
	}

	if choices, ok := envelope["choices"].([]any); ok {
		for _, choice := range choices {
			m, ok := choice.(map[string]any)
			if !ok {
				continue
			}
			message, ok := m["message"].(map[string]any)
			if !ok {
				continue
			}
			if content := stringField(message, "content"); content != "" {
				return content
			}
		}
	}
	return ""
}

func nodeText(node any) string {
	switch n := node.(type) {
	case string:
		return n
	case map[string]any:
		if n["type"] == "message" {
			if content, ok := n["content"].([]any); ok {
				for _, c := range content {
					m, ok := c.(map[string]any)
					if !ok {
						continue
					}
					if m["type"] == "output_text" {
						if text := stringField(m, "text"); text != "" {
							return text
						}
					}
				}
			}
		}
		return stringField(n, "text")
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
