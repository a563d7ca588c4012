package cache

import (
	"github.com/coocood/freecache"
	"github.com/rs/zerolog"

	"github.com/unsaidapp/unsaid/internal/config"
)

// Cache is a byte cache for computed API responses (feed, trending, tags).
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	// Bump invalidates every entry; called on any write to the store.
	Bump()
}

type provider struct {
	cache *freecache.Cache
	ttl   int
}

// New returns a freecache-backed Cache, or a noop one when disabled.
func New(conf *config.CacheConfig, log zerolog.Logger) Cache {
	if !conf.Enabled || conf.Size <= 0 {
		log.Info().Msg("response cache disabled")
		return &noop{}
	}

	ttl := int(conf.TTL.Seconds())
	if ttl < 1 {
		ttl = 1
	}
	log.Info().Int("size_mb", conf.Size).Int("ttl_s", ttl).Msg("response cache initialized")

	return &provider{
		cache: freecache.NewCache(conf.Size * 1024 * 1024),
		ttl:   ttl,
	}
}

func (p *provider) Get(key string) ([]byte, bool) {
	val, err := p.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (p *provider) Set(key string, value []byte) {
	_ = p.cache.Set([]byte(key), value, p.ttl)
}

func (p *provider) Bump() {
	p.cache.Clear()
}

type noop struct{}

func (*noop) Get(_ string) ([]byte, bool) { return nil, false }
func (*noop) Set(_ string, _ []byte)      {}
func (*noop) Bump()                       {}
