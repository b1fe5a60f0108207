package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gauthierbraillon/lookback/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMockRun_ProducesFullReport(t *testing.T) {
	// A wide window keeps the canned fixture items inside the date filter.
	out, err := execute(t, "Claude Code", "--mock", "--youtube", "--emit", "json", "--days", "365")
	if err != nil {
		t.Fatalf("mock run should not fail: %v", err)
	}

	var rep report.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output should be a report JSON document: %v\n%s", err, out)
	}

	if rep.Topic != "Claude Code" {
		t.Errorf("topic = %q", rep.Topic)
	}
	if rep.Mode != "both" {
		t.Errorf("mock mode should run both primary sources, got %q", rep.Mode)
	}
	for name, items := range map[string][]report.Item{
		"reddit": rep.Reddit, "x": rep.X, "dailydev": rep.DailyDev, "youtube": rep.YouTube,
	} {
		if len(items) == 0 {
			t.Errorf("%s should have canned items", name)
		}
	}
	for _, item := range rep.Reddit {
		if item.Relevance < 0 || item.Relevance > 1 {
			t.Errorf("item %s relevance out of range: %f", item.ID, item.Relevance)
		}
	}
	if rep.Digest == "" {
		t.Error("digest should be populated")
	}
}

func TestMockRun_EmitContextIsPlainDigest(t *testing.T) {
	out, err := execute(t, "Claude Code", "--mock", "--emit", "context", "--days", "365")
	if err != nil {
		t.Fatalf("mock run should not fail: %v", err)
	}
	if !strings.HasPrefix(out, "## Claude Code") {
		t.Errorf("context output should start with the digest heading, got:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("context output must not contain terminal escape codes")
	}
}

func TestRun_RejectsConflictingDepthFlags(t *testing.T) {
	_, err := execute(t, "topic", "--mock", "--quick", "--deep")
	if err == nil || !strings.Contains(err.Error(), "--quick and --deep") {
		t.Fatalf("expected a depth conflict error, got %v", err)
	}
}

func TestRun_RejectsUnknownEmitMode(t *testing.T) {
	_, err := execute(t, "topic", "--mock", "--emit", "xml")
	if err == nil || !strings.Contains(err.Error(), "invalid emit mode") {
		t.Fatalf("expected an emit mode error, got %v", err)
	}
}

func TestRun_RequiresExactlyOneTopic(t *testing.T) {
	if _, err := execute(t, "--mock"); err == nil {
		t.Error("a topic argument is required")
	}
	if _, err := execute(t, "one", "two", "--mock"); err == nil {
		t.Error("multiple topics should be rejected")
	}
}
