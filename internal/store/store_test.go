package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unsaidapp/unsaid/internal/db"
	"github.com/unsaidapp/unsaid/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "test.db")
	gdb, err := db.Open(url, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.ConfessionRow{}))
	return New(gdb, zerolog.Nop())
}

func seed(t *testing.T, s *Store, c models.Confession) *models.ConfessionRow {
	t.Helper()
	row := c.Row()
	require.NoError(t, s.Create(context.Background(), row))
	return row
}

func textConfession(id string, ts int64) models.Confession {
	return models.Confession{
		ID:        id,
		Kind:      models.KindText,
		Text:      "confession " + id,
		Timestamp: ts,
		Reactions: models.NewReactionTally(),
		Tags:      []string{"late-night", "campus", "coffee"},
		IsSafe:    true,
	}
}

// --- List / Get tests ---

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("old", 100))
	seed(t, s, textConfession("new", 300))
	seed(t, s, textConfession("mid", 200))

	rows, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "new", rows[0].ID)
	assert.Equal(t, "mid", rows[1].ID)
	assert.Equal(t, "old", rows[2].ID)
}

func TestStore_ListSkipsHidden(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("visible", 100))
	seed(t, s, textConfession("moderated", 200))

	_, err := s.Hide(context.Background(), "moderated")
	require.NoError(t, err)

	rows, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "visible", rows[0].ID)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetHiddenIsNotFound(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("c1", 100))
	_, err := s.Hide(context.Background(), "c1")
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreatePreservesStructuredColumns(t *testing.T) {
	s := newTestStore(t)
	c := models.Confession{
		ID:   "poll1",
		Kind: models.KindPoll,
		Text: "best study spot?",
		PollOptions: []models.PollOption{
			{ID: "o1", Text: "library", Votes: 0},
			{ID: "o2", Text: "cafe", Votes: 0},
		},
		Timestamp:    100,
		Reactions:    models.NewReactionTally(),
		Sentiment:    models.SentimentNeutral,
		Emoji:        "📚",
		Tags:         []string{"study", "campus", "question"},
		ColorTheme:   "#64748b",
		AuthorAvatar: models.Avatar{Name: "Foggy Moth 31", Color: "#94a3b8", Emoji: "🦋"},
		IsSafe:       true,
	}
	seed(t, s, c)

	row, err := s.Get(context.Background(), "poll1")
	require.NoError(t, err)

	got := *row.Confession()
	assert.Equal(t, c, got)
}

// --- Trending tests ---

func TestStore_TrendingOrdersByReactionCount(t *testing.T) {
	s := newTestStore(t)

	quiet := textConfession("quiet", 100)
	seed(t, s, quiet)

	loud := textConfession("loud", 50)
	loud.Reactions = models.ReactionTally{models.ReactionHeart: 9}
	seed(t, s, loud)

	mid := textConfession("mid", 200)
	mid.Reactions = models.ReactionTally{models.ReactionHug: 4}
	seed(t, s, mid)

	rows, err := s.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "loud", rows[0].ID)
	assert.Equal(t, "mid", rows[1].ID)
	assert.Equal(t, "quiet", rows[2].ID)
}

func TestStore_TrendingTieBreaksByTimestamp(t *testing.T) {
	s := newTestStore(t)
	a := textConfession("older", 100)
	a.Reactions = models.ReactionTally{models.ReactionWow: 2}
	seed(t, s, a)

	b := textConfession("newer", 200)
	b.Reactions = models.ReactionTally{models.ReactionSad: 2}
	seed(t, s, b)

	rows, err := s.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "newer", rows[0].ID)
}

func TestStore_TrendingLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < trendingLimit+5; i++ {
		seed(t, s, textConfession(fmt.Sprintf("c%02d", i), int64(i)))
	}

	rows, err := s.Trending(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, trendingLimit)
}

// --- Patch tests ---

func TestStore_PatchReactionsRefreshesCount(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("c1", 100))

	tally := models.NewReactionTally()
	tally.Add(models.ReactionHeart)
	tally.Add(models.ReactionHeart)
	tally.Add(models.ReactionLaugh)

	row, err := s.Patch(context.Background(), "c1", &models.ConfessionPatch{Reactions: tally})
	require.NoError(t, err)
	assert.Equal(t, 3, row.ReactionCount)
	assert.Equal(t, 2, row.Reactions.Data()[models.ReactionHeart])

	fresh, err := s.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.ReactionCount)
	assert.Equal(t, 1, fresh.Reactions.Data()[models.ReactionLaugh])
}

func TestStore_PatchCommentsOnlyLeavesReactions(t *testing.T) {
	s := newTestStore(t)
	c := textConfession("c1", 100)
	c.Reactions = models.ReactionTally{models.ReactionHeart: 5}
	seed(t, s, c)

	comments := []models.Comment{{ID: "cm1", Text: "same", Timestamp: 101}}
	_, err := s.Patch(context.Background(), "c1", &models.ConfessionPatch{Comments: comments})
	require.NoError(t, err)

	fresh, err := s.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Reactions.Data()[models.ReactionHeart])
	require.Len(t, fresh.Comments, 1)
	assert.Equal(t, "same", fresh.Comments[0].Text)
}

func TestStore_PatchPollOptions(t *testing.T) {
	s := newTestStore(t)
	c := models.Confession{
		ID: "p1", Kind: models.KindPoll, Text: "q", Timestamp: 100,
		PollOptions: []models.PollOption{{ID: "o1", Text: "a", Votes: 0}},
		IsSafe:      true,
	}
	seed(t, s, c)

	_, err := s.Patch(context.Background(), "p1", &models.ConfessionPatch{
		PollOptions: []models.PollOption{{ID: "o1", Text: "a", Votes: 1}},
	})
	require.NoError(t, err)

	fresh, err := s.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.PollOptions[0].Votes)
}

func TestStore_PatchMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Patch(context.Background(), "ghost", &models.ConfessionPatch{Comments: []models.Comment{}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PatchHiddenIsNotFound(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("c1", 100))
	_, err := s.Hide(context.Background(), "c1")
	require.NoError(t, err)

	_, err = s.Patch(context.Background(), "c1", &models.ConfessionPatch{Reactions: models.NewReactionTally()})
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Hide tests ---

func TestStore_HideKeepsRow(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("c1", 100))

	row, err := s.Hide(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, row.Hidden)

	// row survives, just invisible
	rows, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_HideMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Hide(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_HideTwiceIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, textConfession("c1", 100))

	_, err := s.Hide(context.Background(), "c1")
	require.NoError(t, err)
	_, err = s.Hide(context.Background(), "c1")
	assert.NoError(t, err)
}

// --- TrendingTags tests ---

func TestStore_TrendingTagsCountsAcrossRows(t *testing.T) {
	s := newTestStore(t)

	a := textConfession("a", 300)
	a.Tags = []string{"exams", "stress", "coffee"}
	seed(t, s, a)

	b := textConfession("b", 200)
	b.Tags = []string{"coffee", "exams", "library"}
	seed(t, s, b)

	c := textConfession("c", 100)
	c.Tags = []string{"exams"}
	seed(t, s, c)

	tags, err := s.TrendingTags(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tags)

	assert.Equal(t, models.TagCount{Tag: "exams", Count: 3}, tags[0])
	assert.Equal(t, models.TagCount{Tag: "coffee", Count: 2}, tags[1])
}

func TestStore_TrendingTagsTieKeepsFirstSeen(t *testing.T) {
	s := newTestStore(t)

	// scanned newest first, so tags of the newest row are seen first
	newer := textConfession("newer", 200)
	newer.Tags = []string{"alpha", "beta"}
	seed(t, s, newer)

	older := textConfession("older", 100)
	older.Tags = []string{"gamma"}
	seed(t, s, older)

	tags, err := s.TrendingTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, "alpha", tags[0].Tag)
	assert.Equal(t, "beta", tags[1].Tag)
	assert.Equal(t, "gamma", tags[2].Tag)
}

func TestStore_TrendingTagsSkipsHidden(t *testing.T) {
	s := newTestStore(t)

	bad := textConfession("bad", 200)
	bad.Tags = []string{"spam"}
	seed(t, s, bad)
	_, err := s.Hide(context.Background(), "bad")
	require.NoError(t, err)

	good := textConfession("good", 100)
	good.Tags = []string{"honest"}
	seed(t, s, good)

	tags, err := s.TrendingTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "honest", tags[0].Tag)
}

// --- rankTags tests ---

func TestRankTags_OrderAndLimit(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 3, "c": 2, "d": 3}
	firstSeen := []string{"a", "b", "c", "d"}

	ranked := rankTags(counts, firstSeen, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, models.TagCount{Tag: "b", Count: 3}, ranked[0])
	assert.Equal(t, models.TagCount{Tag: "d", Count: 3}, ranked[1], "tie keeps first-seen order")
	assert.Equal(t, models.TagCount{Tag: "c", Count: 2}, ranked[2])
}

func TestRankTags_Empty(t *testing.T) {
	assert.Empty(t, rankTags(map[string]int{}, nil, 10))
}
