package models

import "encoding/json"

// Realtime event types pushed over the websocket channel.
const (
	EventNewConfession     = "new_confession"
	EventConfessionUpdated = "confession_updated"
	EventConfessionHidden  = "confession_hidden"
)

// WsMessage is the envelope for every realtime push.
type WsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConfessionPatch is a partial update of a confession's mutable columns.
// Nil fields are left untouched; last write wins at the store.
type ConfessionPatch struct {
	Reactions   ReactionTally `json:"reactions,omitempty"`
	Comments    []Comment     `json:"comments,omitempty"`
	PollOptions []PollOption  `json:"poll_options,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p *ConfessionPatch) Empty() bool {
	return p.Reactions == nil && p.Comments == nil && p.PollOptions == nil
}
