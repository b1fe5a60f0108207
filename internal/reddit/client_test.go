package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/source"
)

var testWindow = dates.Window{From: "2026-01-01", To: "2026-01-31"}

// envelope wraps items JSON in a Responses API payload with surrounding prose.
func envelope(itemsJSON string) json.RawMessage {
	text := "Here is what I found on Reddit:\n\n" + itemsJSON + "\n\nLet me know if you need more."
	payload := map[string]any{
		"id":     "resp_test",
		"object": "response",
		"output": []any{
			map[string]any{"type": "web_search_call", "status": "completed"},
			map[string]any{
				"type": "message",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestParse_DropsItemsOutsideRedditDomain(t *testing.T) {
	raw := envelope(`{
		"items": [
			{"title": "X", "url": "https://reddit.com/r/golang/comments/1/x", "subreddit": "golang", "date": "2026-01-10", "relevance": 0.8},
			{"title": "Elsewhere", "url": "https://example.com/not-reddit", "subreddit": "golang", "date": "2026-01-11", "relevance": 0.9}
		]
	}`)

	client := NewClient("key", "model")
	items := client.Parse(raw)

	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}
	if items[0].ID != "R1" {
		t.Errorf("expected id R1, got %q", items[0].ID)
	}
	if items[0].Title != "X" {
		t.Errorf("expected title X, got %q", items[0].Title)
	}
}

func TestParse_ToleratesProseAndMalformedEntries(t *testing.T) {
	raw := envelope(`{
		"items": [
			"not an object",
			{"title": "Good", "url": "https://reddit.com/r/ClaudeAI/comments/2/good", "subreddit": "r/ClaudeAI", "date": null, "relevance": 1.7},
			{"title": "No URL"}
		]
	}`)

	client := NewClient("key", "model")
	items := client.Parse(raw)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.Identity != "ClaudeAI" {
		t.Errorf("subreddit should drop the r/ prefix, got %q", item.Identity)
	}
	if item.Date != "" {
		t.Errorf("null date should stay empty, got %q", item.Date)
	}
	if item.Relevance == nil || *item.Relevance != 1.0 {
		t.Errorf("out-of-range relevance should clamp to 1.0, got %v", item.Relevance)
	}
}

func TestParse_MalformedPayloadYieldsNoItems(t *testing.T) {
	client := NewClient("key", "model")

	for name, raw := range map[string]json.RawMessage{
		"not json":        json.RawMessage(`this is not json at all`),
		"no output":       json.RawMessage(`{"id": "resp"}`),
		"no embedded obj": envelope(`nothing that looks like a result here`),
		"broken items":    envelope(`{"items": "oops"}`),
	} {
		t.Run(name, func(t *testing.T) {
			if items := client.Parse(raw); len(items) != 0 {
				t.Errorf("expected no items, got %d", len(items))
			}
		})
	}
}

func TestParse_ReadsChoicesFallbackFormat(t *testing.T) {
	raw := json.RawMessage(`{
		"choices": [
			{"message": {"content": "{\"items\": [{\"title\": \"T\", \"url\": \"https://reddit.com/r/a/comments/1/t\", \"relevance\": 0.5}]}"}}
		]
	}`)

	client := NewClient("key", "model")
	if items := client.Parse(raw); len(items) != 1 {
		t.Fatalf("expected 1 item from choices format, got %d", len(items))
	}
}

func TestSearch_TransportErrorIsDistinguishable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-key", "model", WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "topic", testWindow, source.DepthDefault)

	var apiErr *source.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *source.APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.StatusCode)
	}
}

func TestSearch_SendsConstrainedWebSearchRequest(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("expected /v1/responses, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(envelope(`{"items": []}`))
	}))
	defer server.Close()

	client := NewClient("test-key", "gpt-4o-mini", WithBaseURL(server.URL))
	if _, err := client.Search(context.Background(), "Claude Code", testWindow, source.DepthQuick); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("expected model in payload, got %v", gotBody["model"])
	}
	input, _ := gotBody["input"].(string)
	if !strings.Contains(input, "Claude Code") || !strings.Contains(input, "8-12") {
		t.Errorf("prompt should carry topic and quick-depth target, got %q", input)
	}
}

func TestRun_RecallBoostRetriesOnceWithCoreSubject(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		prompts = append(prompts, body.Input)

		if len(prompts) == 1 {
			// Sparse first pass.
			_, _ = w.Write(envelope(`{"items": [
				{"title": "A", "url": "https://reddit.com/r/a/comments/1/a", "relevance": 0.8}
			]}`))
			return
		}
		// Retry finds one duplicate and one new thread.
		_, _ = w.Write(envelope(`{"items": [
			{"title": "A again", "url": "https://reddit.com/r/a/comments/1/a", "relevance": 0.7},
			{"title": "B", "url": "https://reddit.com/r/b/comments/2/b", "relevance": 0.6}
		]}`))
	}))
	defer server.Close()

	client := NewClient("key", "model", WithBaseURL(server.URL))
	result := client.Run(context.Background(), "how to use Claude Code for beginners", testWindow, source.DepthDefault)

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(prompts) != 2 {
		t.Fatalf("expected exactly 2 search calls, got %d", len(prompts))
	}
	if !strings.Contains(prompts[1], "use Claude Code") || strings.Contains(prompts[1], "beginners") {
		t.Errorf("retry should use the simplified core subject, got %q", prompts[1])
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected merged items, got %d", len(result.Items))
	}
	if result.Items[1].ID != "R2" {
		t.Errorf("merged item should be renumbered R2, got %s", result.Items[1].ID)
	}
}

func TestRun_NoRetryWhenSimplifierChangesNothing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write(envelope(`{"items": []}`))
	}))
	defer server.Close()

	client := NewClient("key", "model", WithBaseURL(server.URL))
	client.Run(context.Background(), "Kubernetes", testWindow, source.DepthDefault)

	if calls != 1 {
		t.Errorf("topic without qualifiers should not trigger a retry, got %d calls", calls)
	}
}

func TestRun_RetryFailureIsSilentlyIgnored(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write(envelope(`{"items": [
				{"title": "Only", "url": "https://reddit.com/r/a/comments/1/only", "relevance": 0.9}
			]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("key", "model", WithBaseURL(server.URL))
	result := client.Run(context.Background(), "the best Claude Code tips", testWindow, source.DepthDefault)

	if result.Err != nil {
		t.Fatalf("retry failure must not surface: %v", result.Err)
	}
	if len(result.Items) != 1 {
		t.Errorf("first-pass items should survive a failed retry, got %d", len(result.Items))
	}
}

func TestRun_CannedResponseBypassesTransportAndRetry(t *testing.T) {
	canned := envelope(`{"items": [
		{"title": "Canned", "url": "https://reddit.com/r/mock/comments/9/canned", "relevance": 0.5}
	]}`)

	client := NewClient("", "", WithCannedResponse(canned))
	result := client.Run(context.Background(), "anything at all", testWindow, source.DepthDeep)

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(result.Items) != 1 || result.Items[0].Title != "Canned" {
		t.Fatalf("canned response should parse like a live one, got %+v", result.Items)
	}
	if string(result.Raw) != string(canned) {
		t.Error("raw response should be the canned payload, unmodified")
	}
}

func TestCoreSubject(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"how to use Claude Code for beginners", "use Claude Code"},
		{"best Claude Code tips 2026", "Claude Code"},
		{"Kubernetes", "Kubernetes"},
		{"the a an", "the a an"}, // all qualifiers: fall back to the topic
	}
	for _, tt := range tests {
		if got := CoreSubject(tt.topic); got != tt.want {
			t.Errorf("CoreSubject(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestParse_IDsAreSequentialAcrossDroppedEntries(t *testing.T) {
	var entries []string
	for i := 0; i < 3; i++ {
		entries = append(entries, fmt.Sprintf(
			`{"title": "T%d", "url": "https://reddit.com/r/a/comments/%d/t", "relevance": 0.5}`, i, i))
	}
	raw := envelope(`{"items": [` + entries[0] + `, {"title": "skip me"}, ` + entries[1] + `, ` + entries[2] + `]}`)

	client := NewClient("key", "model")
	items := client.Parse(raw)

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []string{"R1", "R2", "R3"} {
		if items[i].ID != want {
			t.Errorf("item %d id = %s, want %s", i, items[i].ID, want)
		}
	}
}
