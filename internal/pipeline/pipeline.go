// Package pipeline orchestrates one research run: concurrent fan-out to the
// selected source adapters, the sequential enrichment pass, and the
// normalize, filter, score, sort, dedupe stages that turn raw results into a
// ranked report.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/dedupe"
	"github.com/gauthierbraillon/lookback/internal/display"
	"github.com/gauthierbraillon/lookback/internal/reddit"
	"github.com/gauthierbraillon/lookback/internal/report"
	"github.com/gauthierbraillon/lookback/internal/scoring"
	"github.com/gauthierbraillon/lookback/internal/source"
)

// ErrNoSources is returned when the run has nothing to query; it aborts
// before any network call.
var ErrNoSources = errors.New("no sources selected: configure at least one API key")

// Pipeline holds the adapters selected for a run. A nil adapter means that
// source was not selected. Credentials and window bounds are read-only
// inputs; adapter tasks share no mutable state.
type Pipeline struct {
	Reddit   source.Adapter
	X        source.Adapter
	DailyDev source.Adapter
	YouTube  source.Adapter

	// Enricher, when set, upgrades discussion items with live thread data
	// after all adapters have returned.
	Enricher *reddit.Enricher

	// Mode labels the source selection for the report (both, reddit-only, ...).
	Mode string
	// Models records per-source backend model identifiers, where applicable.
	Models map[string]string

	Log *slog.Logger
}

// Run executes the full pipeline and always produces a report when at least
// one source is selected: a failing source contributes an empty list and an
// error string, never an aborted run.
func (p *Pipeline) Run(ctx context.Context, topic string, w dates.Window, depth source.Depth) (*report.Report, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	adapters := []source.Adapter{p.Reddit, p.X, p.DailyDev, p.YouTube}
	selected := 0
	for _, a := range adapters {
		if a != nil {
			selected++
		}
	}
	if selected == 0 {
		return nil, ErrNoSources
	}

	// Fan out one task per selected adapter, then join in a fixed order so
	// report field assignment is reproducible regardless of completion order.
	channels := make([]chan source.Result, len(adapters))
	for i, adapter := range adapters {
		if adapter == nil {
			continue
		}
		ch := make(chan source.Result, 1)
		channels[i] = ch
		go func(a source.Adapter, ch chan<- source.Result) {
			log.Debug("searching", "source", a.Name(), "depth", string(depth))
			ch <- a.Run(ctx, topic, w, depth)
		}(adapter, ch)
	}

	results := make([]source.Result, len(adapters))
	for i, ch := range channels {
		if ch == nil {
			continue
		}
		results[i] = <-ch
		if results[i].Err != nil {
			log.Warn("source failed", "source", adapters[i].Name(), "error", results[i].Err)
		} else {
			log.Debug("source done", "source", adapters[i].Name(), "items", len(results[i].Items))
		}
	}

	// Enrichment is deliberately sequential, in discovery order, to bound
	// load on the thread endpoint. A per-item failure keeps the original.
	redditItems := results[0].Items
	if p.Enricher != nil {
		for i, item := range redditItems {
			enriched, err := p.Enricher.Enrich(ctx, item)
			if err != nil {
				log.Warn("enrichment failed", "url", item.URL, "error", err)
				continue
			}
			redditItems[i] = enriched
		}
	}

	rep := report.New(topic, w, p.Mode, p.Models)
	rep.Reddit = p.process(redditItems, w, scoring.Reddit, true)
	rep.X = p.process(results[1].Items, w, scoring.X, false)
	rep.DailyDev = p.process(results[2].Items, w, scoring.DailyDev, false)
	rep.YouTube = p.process(results[3].Items, w, scoring.YouTube, false)
	rep.RedditError = errString(results[0].Err)
	rep.XError = errString(results[1].Err)
	rep.DailyDevError = errString(results[2].Err)
	rep.YouTubeError = errString(results[3].Err)
	rep.Digest = display.Digest(rep)

	return rep, nil
}

func (p *Pipeline) process(items []source.Item, w dates.Window, profile scoring.Profile, blend bool) []report.Item {
	normalized := Normalize(items, w)
	filtered := FilterByDateRange(normalized, w)
	scored := Score(filtered, profile, blend)
	return dedupe.Dedupe(Sort(scored))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
