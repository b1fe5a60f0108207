package report

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/lookback/internal/dates"
)

func sampleReport() *Report {
	rep := New("Claude Code", dates.Window{From: "2026-01-01", To: "2026-01-31"}, "both",
		map[string]string{"openai": "gpt-4o-mini"})
	rep.Reddit = []Item{
		{
			ID:             "R1",
			Title:          "Thread",
			URL:            "https://reddit.com/r/ClaudeAI/comments/1/thread",
			Identity:       "ClaudeAI",
			Date:           "2026-01-15",
			DateConfidence: dates.ConfidenceVerified,
			Engagement:     map[string]int64{"score": 612, "comments": 187},
			Relevance:      0.91,
			WhyRelevant:    "Deep dive on hooks",
		},
	}
	rep.X = []Item{
		{
			ID:             "X1",
			Title:          "Post text",
			URL:            "https://x.com/a/status/1",
			Identity:       "a",
			DateConfidence: dates.ConfidenceUnknown,
			Relevance:      0.4,
		},
	}
	rep.YouTubeError = "youtube API error (status 402): request failed"
	return rep
}

func TestJSONRoundTrip(t *testing.T) {
	rep := sampleReport()

	out, err := rep.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back Report
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("report JSON should decode: %v", err)
	}
	if !reflect.DeepEqual(&back, rep) {
		t.Errorf("round trip lost data:\nwant %+v\ngot  %+v", rep, &back)
	}

	if !strings.Contains(out, `"date_confidence": "verified"`) {
		t.Error("confidence should serialize as its label")
	}
	if strings.Contains(out, `"reddit_error"`) {
		t.Error("empty error fields should be omitted")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	rep := sampleReport()

	out, err := rep.YAML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back Report
	if err := yaml.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("report YAML should decode: %v", err)
	}
	if !reflect.DeepEqual(&back, rep) {
		t.Errorf("round trip lost data:\nwant %+v\ngot  %+v", rep, &back)
	}
}

func TestNew_ListsAreEmptyNotNull(t *testing.T) {
	rep := New("t", dates.Window{From: "2026-01-01", To: "2026-01-31"}, "both", nil)

	out, err := rep.JSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{`"reddit": []`, `"x": []`, `"dailydev": []`, `"youtube": []`} {
		if !strings.Contains(out, key) {
			t.Errorf("empty source list should serialize as [], missing %s in:\n%s", key, out)
		}
	}
}
