// Package report defines the canonical item schema every source normalizes
// into, and the final report assembled from all sources for one run.
package report

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/lookback/internal/dates"
)

// Item is the canonical representation of one result from any source.
// Items are value records: pipeline stages build new slices rather than
// mutating in place.
type Item struct {
	// ID is a source-prefixed ordinal (R1, X3, DD2, YT4), unique within its
	// source list for a single run.
	ID string `json:"id" yaml:"id"`
	// Title holds the primary human-readable content: a thread or article
	// title, or the post text for X.
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	// Identity is the source-specific origin: subreddit, author handle,
	// publication name, or channel name.
	Identity string `json:"identity,omitempty" yaml:"identity,omitempty"`
	// Date is YYYY-MM-DD, empty when unknown. Never a full timestamp.
	Date           string           `json:"date,omitempty" yaml:"date,omitempty"`
	DateConfidence dates.Confidence `json:"date_confidence" yaml:"date_confidence"`
	// Engagement maps source-specific counter names (likes, score, views...)
	// to non-negative counts. Nil when the source reported none.
	Engagement map[string]int64 `json:"engagement,omitempty" yaml:"engagement,omitempty"`
	// Relevance is the [0,1] ranking score, refined through the pipeline.
	Relevance   float64 `json:"relevance" yaml:"relevance"`
	WhyRelevant string  `json:"why_relevant,omitempty" yaml:"why_relevant,omitempty"`
}

// Report aggregates the deduped item lists from every source plus run
// metadata. One report is produced per invocation; nothing persists.
type Report struct {
	Topic    string            `json:"topic" yaml:"topic"`
	FromDate string            `json:"from_date" yaml:"from_date"`
	ToDate   string            `json:"to_date" yaml:"to_date"`
	Mode     string            `json:"mode" yaml:"mode"`
	Models   map[string]string `json:"models,omitempty" yaml:"models,omitempty"`

	Reddit   []Item `json:"reddit" yaml:"reddit"`
	X        []Item `json:"x" yaml:"x"`
	DailyDev []Item `json:"dailydev" yaml:"dailydev"`
	YouTube  []Item `json:"youtube" yaml:"youtube"`

	RedditError   string `json:"reddit_error,omitempty" yaml:"reddit_error,omitempty"`
	XError        string `json:"x_error,omitempty" yaml:"x_error,omitempty"`
	DailyDevError string `json:"dailydev_error,omitempty" yaml:"dailydev_error,omitempty"`
	YouTubeError  string `json:"youtube_error,omitempty" yaml:"youtube_error,omitempty"`

	// Digest is the short-form markdown snippet rendered from the item
	// lists, suitable for pasting into another context.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

// New creates an empty report for the given run parameters.
func New(topic string, w dates.Window, mode string, models map[string]string) *Report {
	return &Report{
		Topic:    topic,
		FromDate: w.From,
		ToDate:   w.To,
		Mode:     mode,
		Models:   models,
		Reddit:   []Item{},
		X:        []Item{},
		DailyDev: []Item{},
		YouTube:  []Item{},
	}
}

// JSON serializes the report indented, in struct field order.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report as JSON: %w", err)
	}
	return string(data), nil
}

// YAML serializes the report losslessly in struct field order.
func (r *Report) YAML() (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode report as YAML: %w", err)
	}
	return string(data), nil
}
