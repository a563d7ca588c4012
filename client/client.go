// Package client is the application-side SDK: remote data access, the local
// session, the optimistic view-model and the capture flow. It talks to the
// Unsaid server's REST and websocket API.
package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/unsaidapp/unsaid/models"
)

// Remote wraps the server API. Reads degrade to empty results and writes to a
// boolean flag; the view-model rolls optimistic state back on false. There is
// no retry and no conflict resolution, last write wins.
type Remote struct {
	baseURL    string
	adminToken string
	httpc      *http.Client
	log        zerolog.Logger
}

func NewRemote(baseURL string, log zerolog.Logger) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// WithAdminToken attaches the moderation token used by HideConfession.
func (r *Remote) WithAdminToken(token string) *Remote {
	r.adminToken = token
	return r
}

// FetchConfessions loads the visible feed, newest first. Failures yield an
// empty slice so the caller renders an empty feed instead of an error state.
func (r *Remote) FetchConfessions(ctx context.Context) []models.Confession {
	return r.fetchList(ctx, "/api/confessions")
}

// FetchTrending loads the most-reacted confessions.
func (r *Remote) FetchTrending(ctx context.Context) []models.Confession {
	return r.fetchList(ctx, "/api/trending")
}

// FetchTrendingTags loads the server-side tag ranking. Failures yield an
// empty slice.
func (r *Remote) FetchTrendingTags(ctx context.Context) []models.TagCount {
	var tags []models.TagCount
	if err := r.getJSON(ctx, "/api/tags/trending", &tags); err != nil {
		r.log.Warn().Err(err).Msg("fetch trending tags failed")
		return []models.TagCount{}
	}
	return tags
}

// InsertConfession stores a new confession. The confession is shaped entirely
// by the caller; the return value reports success.
func (r *Remote) InsertConfession(ctx context.Context, c *models.Confession) bool {
	body, err := json.Marshal(c.Row())
	if err != nil {
		r.log.Warn().Err(err).Msg("encode confession failed")
		return false
	}
	resp, err := r.do(ctx, http.MethodPost, "/api/confessions", body)
	if err != nil {
		r.log.Warn().Err(err).Msg("insert confession failed")
		return false
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusCreated {
		r.log.Warn().Int("status", resp.StatusCode).Msg("insert confession rejected")
		return false
	}
	return true
}

// UpdateConfession replaces the supplied structured columns on one row.
func (r *Remote) UpdateConfession(ctx context.Context, id string, patch *models.ConfessionPatch) bool {
	body, err := json.Marshal(patch)
	if err != nil {
		r.log.Warn().Err(err).Msg("encode patch failed")
		return false
	}
	resp, err := r.do(ctx, http.MethodPatch, "/api/confessions/"+id, body)
	if err != nil {
		r.log.Warn().Err(err).Str("id", id).Msg("update confession failed")
		return false
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		r.log.Warn().Int("status", resp.StatusCode).Str("id", id).Msg("update confession rejected")
		return false
	}
	return true
}

// HideConfession asks the server to soft-hide a confession. This is the
// moderation path, not part of the optimistic flow, so errors propagate.
func (r *Remote) HideConfession(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+"/api/confessions/"+id, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Admin-Token", r.adminToken)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return errors.New("hide rejected: " + resp.Status)
	}
	return nil
}

// SubscribeHandlers receives realtime pushes. Nil handlers are skipped.
type SubscribeHandlers struct {
	OnInsert func(models.Confession)
	OnUpdate func(models.Confession)
	OnHide   func(id string)
}

// Subscribe dials the websocket endpoint and dispatches pushes until the
// context is cancelled or the connection drops. There is no reconnect; the
// caller owns that decision. Returns nil on context cancellation.
func (r *Remote) Subscribe(ctx context.Context, h SubscribeHandlers) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL(r.baseURL)+"/ws", nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		r.dispatch(raw, h)
	}
}

func (r *Remote) dispatch(raw []byte, h SubscribeHandlers) {
	var msg models.WsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.log.Debug().Err(err).Msg("dropping unreadable push")
		return
	}
	switch msg.Type {
	case models.EventNewConfession:
		var row models.ConfessionRow
		if err := json.Unmarshal(msg.Data, &row); err != nil {
			r.log.Debug().Err(err).Msg("dropping bad insert push")
			return
		}
		if h.OnInsert != nil {
			h.OnInsert(*row.Confession())
		}
	case models.EventConfessionUpdated:
		var row models.ConfessionRow
		if err := json.Unmarshal(msg.Data, &row); err != nil {
			r.log.Debug().Err(err).Msg("dropping bad update push")
			return
		}
		if h.OnUpdate != nil {
			h.OnUpdate(*row.Confession())
		}
	case models.EventConfessionHidden:
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			r.log.Debug().Err(err).Msg("dropping bad hide push")
			return
		}
		if h.OnHide != nil {
			h.OnHide(payload.ID)
		}
	default:
		r.log.Debug().Str("type", msg.Type).Msg("ignoring unknown push")
	}
}

func (r *Remote) fetchList(ctx context.Context, path string) []models.Confession {
	var rows []models.ConfessionRow
	if err := r.getJSON(ctx, path, &rows); err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("fetch confessions failed")
		return []models.Confession{}
	}
	out := make([]models.Confession, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].Confession())
	}
	return out
}

func (r *Remote) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status: " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (r *Remote) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return r.httpc.Do(req)
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
