package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConfessionRow is the backend row shape of a confession. Structured columns
// are JSON-encoded so the schema stays a single table. Rows are never
// deleted; moderation hides them.
type ConfessionRow struct {
	ID            string                            `gorm:"primarykey;size:64" json:"id"`
	Kind          string                            `gorm:"column:type;not null;index" json:"type"`
	Text          string                            `gorm:"type:text;not null" json:"text"`
	Media         string                            `gorm:"column:image;type:text" json:"image,omitempty"`
	PollOptions   datatypes.JSONSlice[PollOption]   `json:"poll_options"`
	Timestamp     int64                             `gorm:"not null;index" json:"timestamp"`
	Reactions     datatypes.JSONType[ReactionTally] `json:"reactions"`
	Comments      datatypes.JSONSlice[Comment]      `json:"comments"`
	Sentiment     string                            `json:"sentiment"`
	Emoji         string                            `json:"emoji"`
	Tags          datatypes.JSONSlice[string]       `json:"tags"`
	ColorTheme    string                            `json:"color_theme"`
	AuthorAvatar  datatypes.JSONType[Avatar]        `json:"author_avatar"`
	IsSafe        bool                              `gorm:"not null;default:true" json:"is_safe"`
	ReactionCount int                               `gorm:"not null;default:0;index" json:"-"` // denormalized Total(), kept for trending queries
	Hidden        bool                              `gorm:"not null;default:false" json:"-"`
	CreatedAt     time.Time                         `json:"created_at"`
}

func (ConfessionRow) TableName() string { return "confessions" }

// Row translates the in-app shape into the backend row shape.
func (c *Confession) Row() *ConfessionRow {
	tally := c.Reactions
	if tally == nil {
		tally = NewReactionTally()
	}
	return &ConfessionRow{
		ID:            c.ID,
		Kind:          string(c.Kind),
		Text:          c.Text,
		Media:         c.Media,
		PollOptions:   datatypes.NewJSONSlice(c.PollOptions),
		Timestamp:     c.Timestamp,
		Reactions:     datatypes.NewJSONType(tally),
		Comments:      datatypes.NewJSONSlice(c.Comments),
		Sentiment:     string(c.Sentiment),
		Emoji:         c.Emoji,
		Tags:          datatypes.NewJSONSlice(c.Tags),
		ColorTheme:    c.ColorTheme,
		AuthorAvatar:  datatypes.NewJSONType(c.AuthorAvatar),
		IsSafe:        c.IsSafe,
		ReactionCount: tally.Total(),
	}
}

// Confession translates the backend row shape into the in-app shape.
func (r *ConfessionRow) Confession() *Confession {
	tally := r.Reactions.Data()
	if tally == nil {
		tally = NewReactionTally()
	}
	return &Confession{
		ID:           r.ID,
		Kind:         PostKind(r.Kind),
		Text:         r.Text,
		Media:        r.Media,
		PollOptions:  []PollOption(r.PollOptions),
		Timestamp:    r.Timestamp,
		Reactions:    tally,
		Comments:     []Comment(r.Comments),
		Sentiment:    Sentiment(r.Sentiment),
		Emoji:        r.Emoji,
		Tags:         []string(r.Tags),
		ColorTheme:   r.ColorTheme,
		AuthorAvatar: r.AuthorAvatar.Data(),
		IsSafe:       r.IsSafe,
	}
}
