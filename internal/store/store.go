// Package store is the persistence layer for confessions. All durable state
// lives in one denormalized table; structured columns are JSON. Rows are
// hidden by moderation, never deleted.
package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/unsaidapp/unsaid/models"
)

var ErrNotFound = errors.New("confession not found")

const (
	// trendingLimit bounds the trending feed; tagWindow bounds how many recent
	// rows the tag aggregation scans.
	trendingLimit = 20
	tagWindow     = 200
	trendingTags  = 10
)

type Store struct {
	db  *gorm.DB
	log zerolog.Logger
	sf  singleflight.Group
}

func New(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// List returns every visible confession, newest first by client timestamp.
func (s *Store) List(ctx context.Context) ([]models.ConfessionRow, error) {
	var rows []models.ConfessionRow
	err := s.db.WithContext(ctx).
		Where("hidden = ?", false).
		Order("timestamp desc").
		Find(&rows).Error
	return rows, err
}

// Trending returns the most-reacted visible confessions.
func (s *Store) Trending(ctx context.Context) ([]models.ConfessionRow, error) {
	var rows []models.ConfessionRow
	err := s.db.WithContext(ctx).
		Where("hidden = ?", false).
		Order("reaction_count desc, timestamp desc").
		Limit(trendingLimit).
		Find(&rows).Error
	return rows, err
}

// Get returns one visible confession.
func (s *Store) Get(ctx context.Context, id string) (*models.ConfessionRow, error) {
	var row models.ConfessionRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND hidden = ?", id, false).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a confession row as the client shaped it.
func (s *Store) Create(ctx context.Context, row *models.ConfessionRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// Patch replaces the supplied structured columns on one confession and
// refreshes the denormalized reaction count. Last write wins; there is no
// merge of concurrent patches.
func (s *Store) Patch(ctx context.Context, id string, patch *models.ConfessionPatch) (*models.ConfessionRow, error) {
	var row models.ConfessionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("hidden = ?", false).First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		updates := map[string]any{}
		if patch.Reactions != nil {
			row.Reactions = datatypes.NewJSONType(patch.Reactions)
			row.ReactionCount = patch.Reactions.Total()
			updates["reactions"] = row.Reactions
			updates["reaction_count"] = row.ReactionCount
		}
		if patch.Comments != nil {
			row.Comments = datatypes.NewJSONSlice(patch.Comments)
			updates["comments"] = row.Comments
		}
		if patch.PollOptions != nil {
			row.PollOptions = datatypes.NewJSONSlice(patch.PollOptions)
			updates["poll_options"] = row.PollOptions
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.ConfessionRow{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Hide soft-hides a confession. The row is kept.
func (s *Store) Hide(ctx context.Context, id string) (*models.ConfessionRow, error) {
	var row models.ConfessionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		row.Hidden = true
		return tx.Model(&row).Update("hidden", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// TrendingTags aggregates tag frequencies over the most recent rows: the ten
// most frequent tags in descending count, ties broken by first appearance in
// the scan. Concurrent calls are collapsed to one query.
func (s *Store) TrendingTags(ctx context.Context) ([]models.TagCount, error) {
	v, err, _ := s.sf.Do("trending_tags", func() (any, error) {
		var rows []models.ConfessionRow
		err := s.db.WithContext(ctx).
			Select("tags").
			Where("hidden = ?", false).
			Order("timestamp desc").
			Limit(tagWindow).
			Find(&rows).Error
		if err != nil {
			return nil, err
		}

		counts := make(map[string]int)
		var order []string
		for _, row := range rows {
			for _, tag := range row.Tags {
				if _, seen := counts[tag]; !seen {
					order = append(order, tag)
				}
				counts[tag]++
			}
		}

		s.log.Debug().Int("rows", len(rows)).Int("tags", len(order)).Msg("recomputed trending tags")
		return rankTags(counts, order, trendingTags), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.TagCount), nil
}

// rankTags sorts by count descending with ties keeping first-seen order.
// Insertion sort over first-seen order is stable by construction.
func rankTags(counts map[string]int, firstSeen []string, limit int) []models.TagCount {
	ranked := make([]models.TagCount, 0, len(firstSeen))
	for _, tag := range firstSeen {
		tc := models.TagCount{Tag: tag, Count: counts[tag]}
		pos := len(ranked)
		for pos > 0 && ranked[pos-1].Count < tc.Count {
			pos--
		}
		ranked = append(ranked, models.TagCount{})
		copy(ranked[pos+1:], ranked[pos:])
		ranked[pos] = tc
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
