// Package dedupe collapses near-duplicate items within one source list.
// Duplicates are detected by normalized URL and, for cross-posts that differ
// only in URL, by normalized title. The highest-relevance item in each group
// survives; ties keep the earliest-discovered.
package dedupe

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/gauthierbraillon/lookback/internal/report"
)

// Query parameters that identify a click, not content.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"ref":          true,
	"ref_source":   true,
	"share_id":     true,
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
}

// NormalizeURL produces the grouping key for a URL: scheme stripped,
// tracking parameters removed, trailing slash trimmed, lower-cased.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		// Not parseable as an absolute URL; fall back to a trimmed string key.
		return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
	}

	query := u.Query()
	for param := range query {
		if trackingParams[strings.ToLower(param)] {
			query.Del(param)
		}
	}

	key := u.Host + strings.TrimRight(u.Path, "/")
	if encoded := encodeSorted(query); encoded != "" {
		key += "?" + encoded
	}
	return strings.ToLower(key)
}

func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// NormalizeTitle produces the fuzzy grouping key for a title: lower-cased,
// punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Dedupe returns the survivors of items in their original order. An item
// joins an existing group when either its URL key or its title key has been
// seen; the group keeps its highest-relevance member, earliest index on ties.
// Running Dedupe on its own output returns the same list.
func Dedupe(items []report.Item) []report.Item {
	if len(items) == 0 {
		return []report.Item{}
	}

	type group struct{ best int } // index into items
	var groups []group
	byURL := make(map[string]int)   // url key -> group index
	byTitle := make(map[string]int) // title key -> group index

	for i, item := range items {
		urlKey := NormalizeURL(item.URL)
		titleKey := NormalizeTitle(item.Title)

		gi := -1
		if g, ok := byURL[urlKey]; ok {
			gi = g
		} else if titleKey != "" {
			if g, ok := byTitle[titleKey]; ok {
				gi = g
			}
		}

		if gi == -1 {
			gi = len(groups)
			groups = append(groups, group{best: i})
		} else if item.Relevance > items[groups[gi].best].Relevance {
			groups[gi].best = i
		}

		if _, ok := byURL[urlKey]; !ok {
			byURL[urlKey] = gi
		}
		if titleKey != "" {
			if _, ok := byTitle[titleKey]; !ok {
				byTitle[titleKey] = gi
			}
		}
	}

	keep := make(map[int]bool, len(groups))
	for _, g := range groups {
		keep[g.best] = true
	}

	out := make([]report.Item, 0, len(groups))
	for i, item := range items {
		if keep[i] {
			out = append(out, item)
		}
	}
	return out
}
