package pipeline

import (
	"sort"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/report"
	"github.com/gauthierbraillon/lookback/internal/scoring"
	"github.com/gauthierbraillon/lookback/internal/source"
)

// Normalize maps raw adapter items onto the canonical item shape, computing
// each item's date confidence against the window and defaulting an absent
// relevance estimate to 0.5. It never drops items; filtering is a separate
// stage.
func Normalize(items []source.Item, w dates.Window) []report.Item {
	out := make([]report.Item, 0, len(items))
	for _, item := range items {
		relevance := 0.5
		if item.Relevance != nil {
			relevance = scoring.Clamp(*item.Relevance)
		}

		var engagement map[string]int64
		if item.Engagement != nil {
			engagement = make(map[string]int64, len(item.Engagement))
			for k, v := range item.Engagement {
				if v < 0 {
					v = 0
				}
				engagement[k] = v
			}
		}

		out = append(out, report.Item{
			ID:             item.ID,
			Title:          item.Title,
			URL:            item.URL,
			Identity:       item.Identity,
			Date:           item.Date,
			DateConfidence: dates.GetConfidence(item.Date, w),
			Engagement:     engagement,
			Relevance:      relevance,
			WhyRelevant:    item.WhyRelevant,
		})
	}
	return out
}

// FilterByDateRange removes an item only when its date is present, parses as
// a valid YYYY-MM-DD, and falls strictly outside the window. Items with no
// date or a malformed one are always retained: the backends were already
// asked for the window, and absence of evidence is not evidence of
// exclusion.
func FilterByDateRange(items []report.Item, w dates.Window) []report.Item {
	from, okFrom := dates.Parse(w.From)
	to, okTo := dates.Parse(w.To)
	if !okFrom || !okTo {
		return items
	}

	out := make([]report.Item, 0, len(items))
	for _, item := range items {
		if item.Date != "" {
			if t, ok := dates.Parse(item.Date); ok {
				if t.Before(from) || t.After(to) {
					continue
				}
			}
		}
		out = append(out, item)
	}
	return out
}

// Score assigns each item's final relevance from its position in the list
// and its engagement counters, per the profile weights. With blendExisting
// set (discussion items, whose backend supplies its own estimate), the
// formula is averaged with the current relevance instead of replacing it.
func Score(items []report.Item, profile scoring.Profile, blendExisting bool) []report.Item {
	total := len(items)
	out := make([]report.Item, 0, total)
	for i, item := range items {
		formula := profile.Relevance(i, total, item.Engagement)
		if blendExisting {
			item.Relevance = scoring.Clamp(0.5*item.Relevance + 0.5*formula)
		} else {
			item.Relevance = formula
		}
		out = append(out, item)
	}
	return out
}

// Sort orders items by relevance descending. The sort is stable: equal
// scores keep their discovery order.
func Sort(items []report.Item) []report.Item {
	out := make([]report.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	return out
}
