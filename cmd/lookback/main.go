// Package main provides the lookback CLI entry point.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/lookback/internal/config"
	"github.com/gauthierbraillon/lookback/internal/dailydev"
	"github.com/gauthierbraillon/lookback/internal/dates"
	"github.com/gauthierbraillon/lookback/internal/display"
	"github.com/gauthierbraillon/lookback/internal/logging"
	"github.com/gauthierbraillon/lookback/internal/pipeline"
	"github.com/gauthierbraillon/lookback/internal/reddit"
	"github.com/gauthierbraillon/lookback/internal/report"
	"github.com/gauthierbraillon/lookback/internal/source"
	"github.com/gauthierbraillon/lookback/internal/twitterapi"
	"github.com/gauthierbraillon/lookback/internal/youtube"
)

var version = "0.1.0"

const runTimeout = 2 * time.Minute

//go:embed fixtures/*.json
var fixturesFS embed.FS

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	mock     bool
	emit     string
	sources  string
	quick    bool
	deep     bool
	dailyDev bool
	youTube  bool
	days     int
	debug    bool
}

// newRootCmd creates the root command for the lookback CLI.
func newRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:     "lookback <topic>",
		Short:   "Research what happened about a topic in the last 30 days",
		Long:    "Lookback queries Reddit, X, daily.dev, and YouTube for recent activity about a topic and produces one ranked report.",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	rootCmd.SetVersionTemplate("lookback version {{.Version}}\n")

	rootCmd.Flags().BoolVar(&opts.mock, "mock", false, "Use canned responses instead of real API calls")
	rootCmd.Flags().StringVar(&opts.emit, "emit", "compact", "Output mode: compact, json, yaml, md, or context")
	rootCmd.Flags().StringVar(&opts.sources, "sources", "auto", "Source selection: auto, reddit, x, or both")
	rootCmd.Flags().BoolVar(&opts.quick, "quick", false, "Faster research with fewer results per source")
	rootCmd.Flags().BoolVar(&opts.deep, "deep", false, "Comprehensive research with more results per source")
	rootCmd.Flags().BoolVar(&opts.dailyDev, "dailydev", false, "Include daily.dev developer articles")
	rootCmd.Flags().BoolVar(&opts.youTube, "youtube", false, "Include YouTube videos via TubeLab")
	rootCmd.Flags().IntVar(&opts.days, "days", 30, "Size of the date window in days")
	rootCmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable verbose debug logging")

	return rootCmd
}

func run(cmd *cobra.Command, topic string, opts options) error {
	if opts.quick && opts.deep {
		return fmt.Errorf("cannot use both --quick and --deep")
	}
	depth := source.DepthDefault
	if opts.quick {
		depth = source.DepthQuick
	} else if opts.deep {
		depth = source.DepthDeep
	}

	log := logging.New(opts.debug)
	cfg := config.Load()
	window := dates.ComputeWindow(opts.days)

	sources := opts.sources
	if opts.mock {
		if sources == "auto" {
			sources = "both"
		}
	} else {
		resolved, err := config.ResolveSources(opts.sources, cfg.Available())
		if err != nil {
			return err
		}
		sources = resolved
	}

	runReddit := sources == "both" || sources == "reddit"
	runX := sources == "both" || sources == "x"
	// daily.dev joins automatically once its key is configured; YouTube is
	// explicit opt-in because each search costs TubeLab credits.
	runDailyDev := opts.mock || opts.dailyDev || cfg.DailyDevKey != ""
	runYouTube := opts.youTube && (opts.mock || cfg.TubeLabKey != "")

	pipe := pipeline.Pipeline{
		Mode: config.ModeLabel(sources),
		Log:  log,
	}

	if runReddit {
		redditOpts := []reddit.ClientOption{}
		enrichOpts := []reddit.EnricherOption{}
		if opts.mock {
			redditOpts = append(redditOpts, reddit.WithCannedResponse(fixture("openai_sample.json")))
			enrichOpts = append(enrichOpts, reddit.WithCannedThread(fixture("reddit_thread_sample.json")))
		}
		pipe.Reddit = reddit.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, redditOpts...)
		pipe.Enricher = reddit.NewEnricher(enrichOpts...)
		pipe.Models = map[string]string{"openai": cfg.OpenAIModel}
	}
	if runX {
		xOpts := []twitterapi.ClientOption{}
		if opts.mock {
			xOpts = append(xOpts, twitterapi.WithCannedResponse(fixture("twitterapi_sample.json")))
		}
		pipe.X = twitterapi.NewClient(cfg.TwitterKey, xOpts...)
	}
	if runDailyDev {
		ddOpts := []dailydev.ClientOption{}
		if opts.mock {
			ddOpts = append(ddOpts, dailydev.WithCannedResponse(fixture("dailydev_sample.json")))
		}
		pipe.DailyDev = dailydev.NewClient(cfg.DailyDevKey, ddOpts...)
	}
	if runYouTube {
		ytOpts := []youtube.ClientOption{}
		if opts.mock {
			ytOpts = append(ytOpts, youtube.WithCannedResponse(fixture("tubelab_sample.json")))
		}
		pipe.YouTube = youtube.NewClient(cfg.TubeLabKey, ytOpts...)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	rep, err := pipe.Run(ctx, topic, window, depth)
	if err != nil {
		return err
	}

	return emit(cmd, rep, opts.emit)
}

func emit(cmd *cobra.Command, rep *report.Report, mode string) error {
	var out string
	var err error

	switch mode {
	case "compact":
		out = display.Compact(rep)
	case "json":
		out, err = rep.JSON()
	case "yaml":
		out, err = rep.YAML()
	case "md":
		out = display.Markdown(rep)
	case "context":
		out = rep.Digest
	default:
		return fmt.Errorf("invalid emit mode %q: must be compact, json, yaml, md, or context", mode)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// fixture returns an embedded canned response for mock mode.
func fixture(name string) json.RawMessage {
	data, err := fixturesFS.ReadFile("fixtures/" + name)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(data)
}
