package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/unsaidapp/unsaid/internal/cache"
	"github.com/unsaidapp/unsaid/internal/metrics"
	"github.com/unsaidapp/unsaid/internal/store"
	"github.com/unsaidapp/unsaid/internal/ws"
	"github.com/unsaidapp/unsaid/models"
)

const (
	maxTextLength  = 2000
	rateLimitRPS   = 1.0 / 3.0 // 1 confession every 3 seconds per IP
	rateLimitBurst = 2

	cacheKeyFeed     = "feed"
	cacheKeyTrending = "trending"
	cacheKeyTags     = "trending_tags"
)

// CreateConfessionInput mirrors the row JSON the client submits. The client
// shapes the whole confession (id, mood fields, avatar) before posting; the
// server only validates and fills gaps.
type CreateConfessionInput struct {
	ID           string               `json:"id" binding:"omitempty,max=64"`
	Kind         string               `json:"type" binding:"required,oneof=text poll video audio"`
	Text         string               `json:"text" binding:"required,min=1,max=2000"`
	Media        string               `json:"image"`
	PollOptions  []models.PollOption  `json:"poll_options" binding:"omitempty,max=6,dive"`
	Timestamp    int64                `json:"timestamp" binding:"omitempty,min=0"`
	Reactions    models.ReactionTally `json:"reactions"`
	Comments     []models.Comment     `json:"comments"`
	Sentiment    string               `json:"sentiment" binding:"omitempty,oneof=happy sad angry anxious excited neutral"`
	Emoji        string               `json:"emoji" binding:"omitempty,max=16"`
	Tags         []string             `json:"tags" binding:"omitempty,max=8,dive,max=40"`
	ColorTheme   string               `json:"color_theme" binding:"omitempty,max=16"`
	AuthorAvatar models.Avatar        `json:"author_avatar"`
	IsSafe       *bool                `json:"is_safe"`
}

// --- Rate Limiter ---

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.seen = time.Now()
	return v.limiter
}

// evictIdle drops visitors not seen within maxIdle.
func (rl *IPRateLimiter) evictIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if time.Since(v.seen) > maxIdle {
			delete(rl.visitors, ip)
		}
	}
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---

type Env struct {
	Store   *store.Store
	Hub     *ws.Hub
	Cache   cache.Cache
	Metrics metrics.Metrics
	Log     zerolog.Logger
}

func (e *Env) GetConfessions(c *gin.Context) {
	e.cachedJSON(c, cacheKeyFeed, "Failed to fetch confessions", func(ctx context.Context) (any, error) {
		return e.Store.List(ctx)
	})
}

func (e *Env) GetTrending(c *gin.Context) {
	e.cachedJSON(c, cacheKeyTrending, "Failed to fetch confessions", func(ctx context.Context) (any, error) {
		return e.Store.Trending(ctx)
	})
}

func (e *Env) GetTrendingTags(c *gin.Context) {
	e.cachedJSON(c, cacheKeyTags, "Failed to fetch tags", func(ctx context.Context) (any, error) {
		return e.Store.TrendingTags(ctx)
	})
}

func (e *Env) CreateConfession(c *gin.Context) {
	var input CreateConfessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if input.Kind == string(models.KindPoll) && len(input.PollOptions) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Polls need at least two options"})
		return
	}
	row := input.row()
	if err := e.Store.Create(c.Request.Context(), row); err != nil {
		e.Log.Error().Err(err).Str("id", row.ID).Msg("create confession failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create confession"})
		return
	}

	e.Cache.Bump()
	e.broadcast(models.EventNewConfession, row)

	c.JSON(http.StatusCreated, row)
}

func (e *Env) PatchConfession(c *gin.Context) {
	id := c.Param("id")
	var patch models.ConfessionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Patch changes nothing"})
		return
	}
	if err := validPatch(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := e.Store.Patch(c.Request.Context(), id, &patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Confession not found"})
			return
		}
		e.Log.Error().Err(err).Str("id", id).Msg("patch confession failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update confession"})
		return
	}

	e.Cache.Bump()
	e.broadcast(models.EventConfessionUpdated, row)

	c.JSON(http.StatusOK, row)
}

func (e *Env) HideConfession(c *gin.Context) {
	id := c.Param("id")

	row, err := e.Store.Hide(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Confession not found"})
			return
		}
		e.Log.Error().Err(err).Str("id", id).Msg("hide confession failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hide confession"})
		return
	}

	e.Cache.Bump()
	e.broadcast(models.EventConfessionHidden, gin.H{"id": row.ID})

	c.JSON(http.StatusOK, gin.H{"message": "Confession hidden"})
}

func (e *Env) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": e.Hub.ClientCount(),
	})
}

// cachedJSON serves a read endpoint from the response cache, computing and
// filling the entry on a miss.
func (e *Env) cachedJSON(c *gin.Context, key, failMsg string, compute func(ctx context.Context) (any, error)) {
	if body, ok := e.Cache.Get(key); ok {
		e.Metrics.IncCacheHits()
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}
	e.Metrics.IncCacheMisses()

	v, err := compute(c.Request.Context())
	if err != nil {
		e.Log.Error().Err(err).Str("key", key).Msg("read endpoint failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		e.Log.Error().Err(err).Str("key", key).Msg("encode response failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": failMsg})
		return
	}
	e.Cache.Set(key, body)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (e *Env) broadcast(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.Log.Error().Err(err).Str("event", eventType).Msg("marshal ws payload failed")
		return
	}
	msg, err := json.Marshal(models.WsMessage{Type: eventType, Data: data})
	if err != nil {
		e.Log.Error().Err(err).Str("event", eventType).Msg("marshal ws message failed")
		return
	}
	e.Hub.Broadcast <- msg
	e.Metrics.IncEventsPublished(eventType)
}

func (in *CreateConfessionInput) row() *models.ConfessionRow {
	conf := models.Confession{
		ID:           in.ID,
		Kind:         models.PostKind(in.Kind),
		Text:         in.Text,
		Media:        in.Media,
		PollOptions:  in.PollOptions,
		Timestamp:    in.Timestamp,
		Reactions:    in.Reactions,
		Comments:     in.Comments,
		Sentiment:    models.Sentiment(in.Sentiment),
		Emoji:        in.Emoji,
		Tags:         in.Tags,
		ColorTheme:   in.ColorTheme,
		AuthorAvatar: in.AuthorAvatar,
		IsSafe:       in.IsSafe == nil || *in.IsSafe,
	}
	if conf.ID == "" {
		conf.ID = uuid.NewString()
	}
	if conf.Timestamp == 0 {
		conf.Timestamp = time.Now().UnixMilli()
	}
	if conf.Sentiment == "" {
		conf.Sentiment = models.SentimentNeutral
	}
	return conf.Row()
}

func validPatch(p *models.ConfessionPatch) error {
	for kind, n := range p.Reactions {
		if !models.ValidReactionKind(kind) {
			return errors.New("unknown reaction kind: " + string(kind))
		}
		if n < 0 {
			return errors.New("reaction counts cannot be negative")
		}
	}
	for i := range p.Comments {
		if p.Comments[i].Text == "" {
			return errors.New("comments cannot be empty")
		}
		if len(p.Comments[i].Text) > maxTextLength {
			return errors.New("comment too long")
		}
	}
	for i := range p.PollOptions {
		if p.PollOptions[i].Votes < 0 {
			return errors.New("poll votes cannot be negative")
		}
	}
	return nil
}
