package client

import (
	"sort"
	"strings"

	"github.com/unsaidapp/unsaid/models"
)

const trendingTagLimit = 10

// Derived views. All of these compute from the current feed snapshot and
// never cache: the feed is the single source of truth.

// Popular orders the feed by total reactions, descending. Ties keep feed
// order.
func (a *AppState) Popular() []models.Confession {
	out := a.Confessions()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalReactions() > out[j].TotalReactions()
	})
	return out
}

// Polls filters the feed down to poll confessions.
func (a *AppState) Polls() []models.Confession {
	var out []models.Confession
	for _, c := range a.Confessions() {
		if c.Kind == models.KindPoll {
			out = append(out, c)
		}
	}
	return out
}

// Search matches case-insensitively against confession text and tags. An
// empty or whitespace query returns no results, not the whole feed.
func (a *AppState) Search(query string) []models.Confession {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.Confession
	for _, c := range a.Confessions() {
		if matchesQuery(&c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matchesQuery(c *models.Confession, q string) bool {
	if strings.Contains(strings.ToLower(c.Text), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// TrendingTags ranks the ten most frequent tags across the feed, descending
// by count. Ties keep the order tags were first seen scanning the feed.
func (a *AppState) TrendingTags() []models.TagCount {
	counts := make(map[string]int)
	var order []string
	for _, c := range a.Confessions() {
		for _, tag := range c.Tags {
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	ranked := make([]models.TagCount, 0, len(order))
	for _, tag := range order {
		ranked = append(ranked, models.TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > trendingTagLimit {
		ranked = ranked[:trendingTagLimit]
	}
	return ranked
}
