package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unsaidapp/unsaid/models"
)

// DataAccess is the remote contract the view-model depends on. Reads degrade
// to empty results, writes to a boolean; see Remote.
type DataAccess interface {
	FetchConfessions(ctx context.Context) []models.Confession
	InsertConfession(ctx context.Context, c *models.Confession) bool
	UpdateConfession(ctx context.Context, id string, patch *models.ConfessionPatch) bool
}

// MoodAnalyzer classifies a confession before posting. Implementations never
// fail; see ai.Service.
type MoodAnalyzer interface {
	Analyze(ctx context.Context, text, imageDataURL string) models.Mood
}

// Tab is the active view of the application.
type Tab string

const (
	TabFeed     Tab = "feed"
	TabTrending Tab = "trending"
	TabPolls    Tab = "polls"
	TabCamera   Tab = "camera"
)

var (
	ErrEmptyText         = errors.New("confession text is empty")
	ErrUnknownKind       = errors.New("unknown confession kind")
	ErrNoMedia           = errors.New("media confession has no media")
	ErrTooFewPollOptions = errors.New("polls need at least two options")
	ErrPostDeclined      = errors.New("posting declined")
	ErrInsertFailed      = errors.New("confession could not be saved")
	ErrUpdateFailed      = errors.New("change could not be saved")
	ErrUnknownConfession = errors.New("confession not found")
	ErrUnknownReaction   = errors.New("unknown reaction")
	ErrNotAPoll          = errors.New("confession is not a poll")
	ErrUnknownOption     = errors.New("poll option not found")
)

// Draft is the input to CreateConfession. An empty Kind means a text
// confession. PollOptions carries option texts for poll drafts; Media carries
// a data URL for photo, video and audio drafts.
type Draft struct {
	Kind        models.PostKind
	Text        string
	Media       string
	PollOptions []string
}

// AppState owns every piece of client state: the confession list, the local
// session, and the active tab. All mutation goes through its methods, which
// serialize on one mutex so callers and the push subscriber never interleave.
//
// Mutations are optimistic: apply locally, try the server, undo on a false
// return. XP is only awarded once the server accepted the write.
type AppState struct {
	mu       sync.Mutex
	remote   DataAccess
	analyzer MoodAnalyzer
	local    *LocalStore
	log      zerolog.Logger

	confessions []models.Confession
	session     *UserSessionData
	tab         Tab

	// UnsafeConfirm gates posting a confession the analyzer flagged. Nil
	// means no gate: the confession posts anyway. Moderation is advisory
	// on the posting side; hiding happens server-side.
	UnsafeConfirm func(flagReason string) bool
}

// NewAppState wires the view-model. local may be nil, which disables
// persistence (the session then lives for the process only).
func NewAppState(remote DataAccess, analyzer MoodAnalyzer, local *LocalStore, log zerolog.Logger) *AppState {
	a := &AppState{
		remote:   remote,
		analyzer: analyzer,
		local:    local,
		log:      log,
		session:  NewSession(),
		tab:      TabFeed,
	}
	if local != nil {
		var sess UserSessionData
		found, err := local.Load(KeySession, &sess)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("could not load session, starting fresh")
		case found:
			a.session = &sess
		}
		if a.session.Theme == "" {
			var theme string
			if ok, _ := local.Load(KeyTheme, &theme); ok {
				a.session.Theme = theme
			}
		}
		a.session.normalize()
	}
	return a
}

// Refresh replaces the confession list with the server's view. A failed
// fetch leaves an empty feed, not an error.
func (a *AppState) Refresh(ctx context.Context) {
	list := a.remote.FetchConfessions(ctx)
	a.mu.Lock()
	a.confessions = list
	a.mu.Unlock()
}

// Confessions returns a snapshot of the feed, newest first. Treat it as
// read-only.
func (a *AppState) Confessions() []models.Confession {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Confession, len(a.confessions))
	copy(out, a.confessions)
	return out
}

// Session returns a copy of the local session.
func (a *AppState) Session() UserSessionData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.session
}

func (a *AppState) ActiveTab() Tab {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tab
}

func (a *AppState) SetTab(t Tab) {
	a.mu.Lock()
	a.tab = t
	a.mu.Unlock()
}

// SetTheme stores the theme preference and persists the session.
func (a *AppState) SetTheme(theme string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.Theme = theme
	a.persistSession()
}

// CreateConfession analyzes and posts a draft. The confession appears in the
// feed immediately and is removed again if the server rejects it. A flagged
// draft goes through the UnsafeConfirm gate first. On success the session
// earns posting XP.
func (a *AppState) CreateConfession(ctx context.Context, d Draft) (models.Confession, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return models.Confession{}, ErrEmptyText
	}
	if d.Kind == "" {
		d.Kind = models.KindText
	}
	if !models.ValidPostKind(d.Kind) {
		return models.Confession{}, ErrUnknownKind
	}
	switch d.Kind {
	case models.KindPoll:
		if len(d.PollOptions) < 2 {
			return models.Confession{}, ErrTooFewPollOptions
		}
	case models.KindVideo, models.KindAudio:
		if d.Media == "" {
			return models.Confession{}, ErrNoMedia
		}
	}

	mood := a.analyzer.Analyze(ctx, text, d.Media)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !mood.IsSafe && a.UnsafeConfirm != nil && !a.UnsafeConfirm(mood.FlagReason) {
		return models.Confession{}, ErrPostDeclined
	}

	options := make([]models.PollOption, 0, len(d.PollOptions))
	if d.Kind == models.KindPoll {
		for _, text := range d.PollOptions {
			options = append(options, models.PollOption{ID: uuid.NewString(), Text: text})
		}
	}
	conf := models.Confession{
		ID:           uuid.NewString(),
		Kind:         d.Kind,
		Text:         text,
		Media:        d.Media,
		PollOptions:  options,
		Timestamp:    time.Now().UnixMilli(),
		Reactions:    models.NewReactionTally(),
		Comments:     []models.Comment{},
		Sentiment:    mood.Sentiment,
		Emoji:        mood.Emoji,
		Tags:         mood.Tags,
		ColorTheme:   mood.ColorTheme,
		AuthorAvatar: a.session.Avatar,
		IsSafe:       mood.IsSafe,
	}

	a.confessions = append([]models.Confession{conf}, a.confessions...)

	if !a.remote.InsertConfession(ctx, &conf) {
		a.removeLocked(conf.ID)
		return models.Confession{}, ErrInsertFailed
	}

	a.session.Points += xpPost
	a.persistSession()
	return conf, nil
}

// ToggleReaction applies this session's reaction to a confession. Picking the
// held kind again clears it; picking another kind swaps and leaves the total
// unchanged. The first reaction on a confession earns XP, changes do not.
func (a *AppState) ToggleReaction(ctx context.Context, confessionID string, kind models.ReactionKind) error {
	if !models.ValidReactionKind(kind) {
		return ErrUnknownReaction
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(confessionID)
	if idx < 0 {
		return ErrUnknownConfession
	}
	conf := &a.confessions[idx]
	if conf.Reactions == nil {
		conf.Reactions = models.NewReactionTally()
	}

	prevTally := conf.Reactions.Clone()
	prevKind, hadPrev := a.session.Reactions[confessionID]

	firstReaction := false
	switch {
	case hadPrev && prevKind == kind:
		conf.Reactions.Remove(kind)
		delete(a.session.Reactions, confessionID)
	case hadPrev:
		conf.Reactions.Remove(prevKind)
		conf.Reactions.Add(kind)
		a.session.Reactions[confessionID] = kind
	default:
		conf.Reactions.Add(kind)
		a.session.Reactions[confessionID] = kind
		firstReaction = true
	}

	patch := &models.ConfessionPatch{Reactions: conf.Reactions.Clone()}
	if !a.remote.UpdateConfession(ctx, confessionID, patch) {
		conf.Reactions = prevTally
		if hadPrev {
			a.session.Reactions[confessionID] = prevKind
		} else {
			delete(a.session.Reactions, confessionID)
		}
		return ErrUpdateFailed
	}

	if firstReaction {
		a.session.Points += xpReact
	}
	a.persistSession()
	return nil
}

// AddComment appends a comment under this session's avatar. Comments are
// append-only; there is no edit or delete. Earns XP on success.
func (a *AppState) AddComment(ctx context.Context, confessionID, text string) (models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Comment{}, ErrEmptyText
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(confessionID)
	if idx < 0 {
		return models.Comment{}, ErrUnknownConfession
	}
	conf := &a.confessions[idx]

	comment := models.Comment{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Avatar:    a.session.Avatar,
	}
	prevLen := len(conf.Comments)
	conf.Comments = append(conf.Comments, comment)

	patch := &models.ConfessionPatch{Comments: conf.Comments}
	if !a.remote.UpdateConfession(ctx, confessionID, patch) {
		conf.Comments = conf.Comments[:prevLen]
		return models.Comment{}, ErrUpdateFailed
	}

	a.session.Points += xpComment
	a.persistSession()
	return comment, nil
}

// CastVote votes once on a poll. A session that already voted is a silent
// no-op, matching the one-vote-per-poll rule. Earns XP on the first vote.
func (a *AppState) CastVote(ctx context.Context, confessionID, optionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(confessionID)
	if idx < 0 {
		return ErrUnknownConfession
	}
	conf := &a.confessions[idx]
	if conf.Kind != models.KindPoll {
		return ErrNotAPoll
	}
	if a.session.HasVoted(confessionID) {
		return nil
	}
	option := conf.FindPollOption(optionID)
	if option == nil {
		return ErrUnknownOption
	}

	option.Votes++
	a.session.Votes[confessionID] = optionID

	patch := &models.ConfessionPatch{PollOptions: conf.PollOptions}
	if !a.remote.UpdateConfession(ctx, confessionID, patch) {
		option.Votes--
		delete(a.session.Votes, confessionID)
		return ErrUpdateFailed
	}

	a.session.Points += xpVote
	a.persistSession()
	return nil
}

// HandleInsert merges a pushed confession into the feed. IDs already present
// are skipped, which covers our own optimistic inserts echoing back.
func (a *AppState) HandleInsert(c models.Confession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.indexLocked(c.ID) >= 0 {
		return
	}
	a.confessions = append([]models.Confession{c}, a.confessions...)
}

// HandleUpdate replaces a confession the server pushed a new version of.
// Unknown IDs are ignored.
func (a *AppState) HandleUpdate(c models.Confession) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.indexLocked(c.ID)
	if idx < 0 {
		return
	}
	a.confessions[idx] = c
}

// HandleHide drops a moderated confession from the feed.
func (a *AppState) HandleHide(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeLocked(id)
}

// Handlers bundles the push callbacks for Remote.Subscribe.
func (a *AppState) Handlers() SubscribeHandlers {
	return SubscribeHandlers{
		OnInsert: a.HandleInsert,
		OnUpdate: a.HandleUpdate,
		OnHide:   a.HandleHide,
	}
}

func (a *AppState) indexLocked(id string) int {
	for i := range a.confessions {
		if a.confessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (a *AppState) removeLocked(id string) {
	idx := a.indexLocked(id)
	if idx < 0 {
		return
	}
	a.confessions = append(a.confessions[:idx], a.confessions[idx+1:]...)
}

// persistSession writes the session if a store is attached. Persistence
// failures are logged, never surfaced: the in-memory session stays valid.
func (a *AppState) persistSession() {
	if a.local == nil {
		return
	}
	if err := a.local.Save(KeySession, a.session); err != nil {
		a.log.Warn().Err(err).Msg("could not persist session")
	}
}
