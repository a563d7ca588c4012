package models

// PostKind discriminates what a confession carries besides text.
type PostKind string

const (
	KindText  PostKind = "text"
	KindPoll  PostKind = "poll"
	KindVideo PostKind = "video"
	KindAudio PostKind = "audio"
)

// ValidPostKind reports whether k is one of the supported kinds.
func ValidPostKind(k PostKind) bool {
	switch k {
	case KindText, KindPoll, KindVideo, KindAudio:
		return true
	}
	return false
}

// ReactionKind is one of the fixed reaction buckets on a confession.
type ReactionKind string

const (
	ReactionHeart ReactionKind = "heart"
	ReactionHug   ReactionKind = "hug"
	ReactionLaugh ReactionKind = "laugh"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
)

// ReactionKinds returns every reaction bucket in display order.
func ReactionKinds() []ReactionKind {
	return []ReactionKind{ReactionHeart, ReactionHug, ReactionLaugh, ReactionWow, ReactionSad}
}

// ValidReactionKind reports whether k is one of the fixed buckets.
func ValidReactionKind(k ReactionKind) bool {
	switch k {
	case ReactionHeart, ReactionHug, ReactionLaugh, ReactionWow, ReactionSad:
		return true
	}
	return false
}

// ReactionTally is the per-kind reaction count on a confession.
// Counts never go below zero.
type ReactionTally map[ReactionKind]int

// NewReactionTally returns a tally with every bucket present at zero,
// so the serialized shape is stable.
func NewReactionTally() ReactionTally {
	t := make(ReactionTally, len(ReactionKinds()))
	for _, k := range ReactionKinds() {
		t[k] = 0
	}
	return t
}

func (t ReactionTally) Add(k ReactionKind) {
	t[k]++
}

// Remove decrements a bucket, flooring at zero.
func (t ReactionTally) Remove(k ReactionKind) {
	if t[k] > 0 {
		t[k]--
	}
}

// Total is the sum over all buckets.
func (t ReactionTally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Clone returns an independent copy, used to capture rollback state
// before an optimistic mutation.
func (t ReactionTally) Clone() ReactionTally {
	c := make(ReactionTally, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// PollOption is a single choice on a poll confession.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Comment is an append-only reply on a confession. The author's avatar is
// snapshotted at creation time; there is no account to resolve it from later.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Avatar    Avatar `json:"avatar"`
}

// Confession is the in-app shape of a post. The backend row shape lives in
// ConfessionRow; translation between the two belongs to the data-access layer.
type Confession struct {
	ID           string        `json:"id"`
	Kind         PostKind      `json:"kind"`
	Text         string        `json:"text"`
	Media        string        `json:"media,omitempty"` // inline data URL (image, audio or video)
	PollOptions  []PollOption  `json:"pollOptions,omitempty"`
	Timestamp    int64         `json:"timestamp"`       // unix milliseconds, client clock
	Reactions    ReactionTally `json:"reactions"`
	Comments     []Comment     `json:"comments"`
	Sentiment    Sentiment     `json:"sentiment"`
	Emoji        string        `json:"emoji"`
	Tags         []string      `json:"tags"`
	ColorTheme   string        `json:"colorTheme"`
	AuthorAvatar Avatar        `json:"authorAvatar"`
	IsSafe       bool          `json:"isSafe"`
}

// TotalReactions is the popularity score used by the "popular" ordering.
func (c *Confession) TotalReactions() int {
	return c.Reactions.Total()
}

// FindPollOption returns a pointer into PollOptions, or nil.
func (c *Confession) FindPollOption(optionID string) *PollOption {
	for i := range c.PollOptions {
		if c.PollOptions[i].ID == optionID {
			return &c.PollOptions[i]
		}
	}
	return nil
}

// TagCount is one entry of a trending-tag ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
