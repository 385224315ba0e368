// Package backend wires concrete cache backends into a registry.
//
// The in-process backend is always available; the Redis backend is added
// only when a connection URL is configured. A missing URL is not an
// error - the registry transparently falls back to memory only.
package backend

import (
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/scopecache"
	"github.com/unkn0wn-root/scopecache/backend/memory"
	"github.com/unkn0wn-root/scopecache/backend/redis"
	"github.com/unkn0wn-root/scopecache/codec"
)

// Environment variables consulted by NewRegistryFromEnv, in order.
const (
	EnvRedisURL         = "SCOPECACHE_REDIS_URL"
	EnvRedisURLFallback = "REDIS_URL"
)

type Config struct {
	// RedisURL connects the distributed backend (redis:// or rediss://).
	// Empty means in-process only.
	RedisURL string
	// Options apply to every constructed backend.
	Options scopecache.Options
	// Hooks receive backend events; nil => NopHooks.
	Hooks scopecache.Hooks
}

// NewRegistry builds a registry holding the in-process backend and, when
// cfg.RedisURL is set, the Redis backend as default. A malformed URL is
// a configuration error and fails loudly; everything operational after
// construction fails open.
func NewRegistry[V any](cfg Config, log scopecache.Logger) (*scopecache.Registry[V], error) {
	if log == nil {
		log = scopecache.NopLogger{}
	}
	reg := scopecache.NewRegistry[V](log)

	mem, err := memory.New[V](memory.Config{
		Options: cfg.Options,
		Logger:  log,
		Hooks:   cfg.Hooks,
	})
	if err != nil {
		return nil, err
	}
	if err := reg.Register(mem); err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		log.Info("no redis url configured, using in-process cache only", nil)
		return reg, nil
	}

	ropts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rb, err := redis.New[V](redis.Config[V]{
		Client:      goredis.NewClient(ropts),
		CloseClient: true,
		Codec:       codec.JSON[V]{},
		Options:     cfg.Options,
		Logger:      log,
		Hooks:       cfg.Hooks,
	})
	if err != nil {
		return nil, err
	}
	if err := reg.Register(rb); err != nil {
		return nil, err
	}
	if err := reg.SetDefault(scopecache.KindRedis); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewRegistryFromEnv is NewRegistry with the Redis URL taken from the
// environment.
func NewRegistryFromEnv[V any](log scopecache.Logger) (*scopecache.Registry[V], error) {
	url := os.Getenv(EnvRedisURL)
	if url == "" {
		url = os.Getenv(EnvRedisURLFallback)
	}
	return NewRegistry[V](Config{RedisURL: url}, log)
}
