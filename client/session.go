package client

import "github.com/unsaidapp/unsaid/models"

// XP awards. Only the first reaction on a confession scores; changing or
// clearing it afterwards is free.
const (
	xpPost    = 20
	xpReact   = 2
	xpComment = 5
	xpVote    = 5
)

// UserSessionData is the whole identity of a user: a random avatar plus local
// interaction history. It lives only in the local store; clearing that store
// is a full reset, there is no server copy and no cross-device sync.
type UserSessionData struct {
	Avatar models.Avatar `json:"avatar"`
	Points int           `json:"points"`
	// Reactions maps confession ID to the reaction this session picked.
	Reactions map[string]models.ReactionKind `json:"reactions"`
	// Votes maps poll confession ID to the chosen option ID. One vote per
	// poll, ever.
	Votes map[string]string `json:"votes"`
	Theme string           `json:"theme"`
}

func NewSession() *UserSessionData {
	return &UserSessionData{
		Avatar:    models.NewAvatar(),
		Reactions: make(map[string]models.ReactionKind),
		Votes:     make(map[string]string),
		Theme:     "dark",
	}
}

// Level is derived from points, starting at 1.
func (s UserSessionData) Level() int {
	return s.Points/100 + 1
}

// ReactionFor returns the reaction this session holds on a confession.
func (s UserSessionData) ReactionFor(confessionID string) (models.ReactionKind, bool) {
	k, ok := s.Reactions[confessionID]
	return k, ok
}

// HasVoted reports whether this session already voted on a poll.
func (s UserSessionData) HasVoted(confessionID string) bool {
	_, ok := s.Votes[confessionID]
	return ok
}

// normalize repairs maps after a JSON round-trip.
func (s *UserSessionData) normalize() {
	if s.Reactions == nil {
		s.Reactions = make(map[string]models.ReactionKind)
	}
	if s.Votes == nil {
		s.Votes = make(map[string]string)
	}
	if s.Theme == "" {
		s.Theme = "dark"
	}
}
