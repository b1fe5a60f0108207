// Package config loads API credentials for the source backends from the
// user's credential file and the environment, and validates which sources a
// run can use. Configuration is threaded explicitly into the pipeline; no
// adapter reads the environment itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const defaultOpenAIModel = "gpt-4o-mini"

// Config holds every credential and model choice a run may need. Empty
// fields mean the corresponding source is unavailable.
type Config struct {
	OpenAIKey   string
	OpenAIModel string
	TwitterKey  string
	DailyDevKey string
	TubeLabKey  string
}

// Dir returns the configuration directory path.
func Dir() string {
	if dir := os.Getenv("LOOKBACK_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lookback")
}

// Load reads ~/.config/lookback/.env and the process environment.
// Environment variables take precedence over file values; a missing file is
// not an error.
func Load() Config {
	// godotenv only fills variables that are not already set, which gives
	// the environment precedence over the file.
	_ = godotenv.Load(filepath.Join(Dir(), ".env"))

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultOpenAIModel
	}

	return Config{
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: model,
		TwitterKey:  os.Getenv("TWITTERAPI_IO_KEY"),
		DailyDevKey: os.Getenv("DAILYDEV_API_KEY"),
		TubeLabKey:  os.Getenv("TUBELAB_API_KEY"),
	}
}

// Available reports which of the two primary sources have keys configured:
// "both", "reddit", "x", or "none".
func (c Config) Available() string {
	switch {
	case c.OpenAIKey != "" && c.TwitterKey != "":
		return "both"
	case c.OpenAIKey != "":
		return "reddit"
	case c.TwitterKey != "":
		return "x"
	default:
		return "none"
	}
}

// ResolveSources validates a requested selection (auto, reddit, x, both)
// against the available keys and returns the effective selection. The run
// must abort on error before any network call is made.
func ResolveSources(requested, available string) (string, error) {
	if available == "none" {
		return "", fmt.Errorf("no API keys configured: add at least one key to %s", filepath.Join(Dir(), ".env"))
	}

	switch requested {
	case "auto":
		return available, nil
	case "both":
		if available != "both" {
			missing := "TWITTERAPI_IO_KEY"
			if available == "x" {
				missing = "OPENAI_API_KEY"
			}
			return "", fmt.Errorf("requested both sources but %s is missing: use --sources=auto to use what is configured", missing)
		}
		return "both", nil
	case "reddit":
		if available == "x" {
			return "", fmt.Errorf("requested reddit but only an X key is configured")
		}
		return "reddit", nil
	case "x":
		if available == "reddit" {
			return "", fmt.Errorf("requested x but only an OpenAI key is configured")
		}
		return "x", nil
	default:
		return "", fmt.Errorf("invalid sources %q: must be auto, reddit, x, or both", requested)
	}
}

// ModeLabel names the effective selection for the report.
func ModeLabel(sources string) string {
	switch sources {
	case "reddit":
		return "reddit-only"
	case "x":
		return "x-only"
	default:
		return sources
	}
}
