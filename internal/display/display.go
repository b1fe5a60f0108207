// Package display renders a research report for humans: a styled compact
// terminal view, a full markdown report, and the short digest snippet
// embedded in the report itself.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gauthierbraillon/lookback/internal/report"
)

const separator = " • "

// Items shown per source in the compact view and the digest.
const (
	compactLimit = 5
	digestLimit  = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	urlStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type section struct {
	label string
	items []report.Item
	err   string
}

func sections(r *report.Report) []section {
	return []section{
		{"Reddit", r.Reddit, r.RedditError},
		{"X", r.X, r.XError},
		{"daily.dev", r.DailyDev, r.DailyDevError},
		{"YouTube", r.YouTube, r.YouTubeError},
	}
}

// Compact renders the terminal summary: run header, then the top items per
// source with score, date, and URL.
func Compact(r *report.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s%s%s to %s%s%s",
		r.Topic, separator, r.FromDate, r.ToDate, separator, r.Mode)))
	b.WriteString("\n")

	for _, s := range sections(r) {
		if len(s.items) == 0 && s.err == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", s.label, len(s.items))))
		b.WriteString("\n")

		if s.err != "" {
			b.WriteString(errorStyle.Render("  ! " + s.err))
			b.WriteString("\n")
		}

		for i, item := range s.items {
			if i >= compactLimit {
				b.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.items)-compactLimit))
				break
			}
			line := fmt.Sprintf("  %s %s %s", scoreStyle.Render(fmt.Sprintf("%.2f", item.Relevance)),
				TruncateText(item.Title, 70), metaLine(item))
			b.WriteString(strings.TrimRight(line, " "))
			b.WriteString("\n")
			b.WriteString("       " + urlStyle.Render(item.URL) + "\n")
		}
	}

	if total := countItems(r); total == 0 {
		b.WriteString("\nNo items found in the window.\n")
	}
	return b.String()
}

func metaLine(item report.Item) string {
	var parts []string
	if item.Date != "" {
		parts = append(parts, item.Date)
	}
	if item.Identity != "" {
		parts = append(parts, item.Identity)
	}
	if eng := formatEngagement(item.Engagement); eng != "" {
		parts = append(parts, eng)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, separator) + ")"
}

// formatEngagement renders counters in a stable key order.
func formatEngagement(engagement map[string]int64) string {
	if len(engagement) == 0 {
		return ""
	}
	keys := make([]string, 0, len(engagement))
	for k := range engagement {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", engagement[k], strings.ReplaceAll(k, "_", " ")))
	}
	return strings.Join(parts, ", ")
}

// Markdown renders the full report with every surviving item.
func Markdown(r *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Topic)
	fmt.Fprintf(&b, "Window: %s to %s%sMode: %s\n", r.FromDate, r.ToDate, separator, r.Mode)
	for name, model := range r.Models {
		fmt.Fprintf(&b, "Model (%s): %s\n", name, model)
	}

	for _, s := range sections(r) {
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", s.label, len(s.items))
		if s.err != "" {
			fmt.Fprintf(&b, "> Source error: %s\n\n", s.err)
		}
		if len(s.items) == 0 {
			b.WriteString("_No items._\n")
			continue
		}
		for _, item := range s.items {
			fmt.Fprintf(&b, "- **%s** (%.2f)\n", item.Title, item.Relevance)
			fmt.Fprintf(&b, "  - %s\n", item.URL)
			if meta := metaLine(item); meta != "" {
				fmt.Fprintf(&b, "  - %s\n", strings.Trim(meta, "()"))
			}
			if item.WhyRelevant != "" {
				fmt.Fprintf(&b, "  - %s\n", item.WhyRelevant)
			}
		}
	}
	return b.String()
}

// Digest renders the short-form snippet stored on the report: the top few
// items per source in plain markdown, safe to paste into another context.
func Digest(r *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s — last %s to %s\n", r.Topic, r.FromDate, r.ToDate)

	for _, s := range sections(r) {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", s.label)
		for i, item := range s.items {
			if i >= digestLimit {
				break
			}
			date := item.Date
			if date == "" {
				date = "date unknown"
			}
			fmt.Fprintf(&b, "- %s (%s) %s\n", TruncateText(item.Title, 90), date, item.URL)
		}
	}

	if countItems(r) == 0 {
		b.WriteString("\nNo items found.\n")
	}
	return b.String()
}

func countItems(r *report.Report) int {
	return len(r.Reddit) + len(r.X) + len(r.DailyDev) + len(r.YouTube)
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
