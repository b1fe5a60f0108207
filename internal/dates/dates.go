// Package dates computes research date windows and classifies how much an
// item's reported date can be trusted relative to a window.
package dates

import "time"

const layout = "2006-01-02"

// Confidence classifies an item date against the query window.
type Confidence string

const (
	// ConfidenceVerified means the date parsed and falls inside the window.
	ConfidenceVerified Confidence = "verified"
	// ConfidenceUnverified means the date parsed but falls outside the window.
	ConfidenceUnverified Confidence = "unverified"
	// ConfidenceUnknown means the date is absent or not a valid YYYY-MM-DD.
	ConfidenceUnknown Confidence = "unknown"
)

// Window is an inclusive [From, To] date range in YYYY-MM-DD form.
type Window struct {
	From string
	To   string
}

// ComputeWindow returns the window of the last `days` days ending today (UTC).
func ComputeWindow(days int) Window {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	return Window{
		From: from.Format(layout),
		To:   to.Format(layout),
	}
}

// Parse parses a YYYY-MM-DD date string. Returns false for anything else,
// including otherwise-plausible strings with out-of-range components.
func Parse(s string) (time.Time, bool) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// GetConfidence classifies candidate against the window. An empty or
// malformed candidate is unknown; callers decide what survives filtering.
func GetConfidence(candidate string, w Window) Confidence {
	if candidate == "" {
		return ConfidenceUnknown
	}
	t, ok := Parse(candidate)
	if !ok {
		return ConfidenceUnknown
	}
	from, okFrom := Parse(w.From)
	to, okTo := Parse(w.To)
	if !okFrom || !okTo {
		return ConfidenceUnknown
	}
	if !t.Before(from) && !t.After(to) {
		return ConfidenceVerified
	}
	return ConfidenceUnverified
}
