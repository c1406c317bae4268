package config

import (
	"context"
	"fmt"
	"net/http"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/listcount"
	"github.com/unkn0wn-root/listcount/client"
	"github.com/unkn0wn-root/listcount/codec"
	gen "github.com/unkn0wn-root/listcount/genstore"
	pr "github.com/unkn0wn-root/listcount/provider"
	"github.com/unkn0wn-root/listcount/provider/bigcache"
	prredis "github.com/unkn0wn-root/listcount/provider/redis"
	"github.com/unkn0wn-root/listcount/provider/ristretto"
	"github.com/unkn0wn-root/listcount/totals"
)

// NewStore builds the shared totals store. Provider "none" yields a nil
// store and no error; managers then keep totals in memory only.
func NewStore(ctx context.Context, cfg StoreConfig, log listcount.Logger, hooks listcount.Hooks) (listcount.Store, error) {
	if cfg.Provider == "none" || cfg.Provider == "" {
		return nil, nil
	}

	cd, err := codec.ByName[listcount.Snapshot](cfg.Codec, cfg.MaxDecode)
	if err != nil {
		return nil, err
	}

	var rdb goredis.UniversalClient
	redisClient := func() (goredis.UniversalClient, error) {
		if rdb != nil {
			return rdb, nil
		}
		c := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("config: redis ping: %w", err)
		}
		rdb = c
		return rdb, nil
	}

	var p pr.Provider
	switch cfg.Provider {
	case "ristretto":
		p, err = ristretto.New(ristretto.Config{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
		})
	case "bigcache":
		p, err = bigcache.New(bigcache.Config{
			LifeWindow:         cfg.Bigcache.LifeWindow,
			CleanWindow:        cfg.Bigcache.CleanWindow,
			HardMaxCacheSizeMB: cfg.Bigcache.HardMaxCacheSizeMB,
		})
	case "redis":
		var c goredis.UniversalClient
		if c, err = redisClient(); err == nil {
			// the provider owns the client; the genstore borrows it
			p, err = prredis.New(prredis.Config{Client: c, CloseClient: true})
		}
	default:
		err = fmt.Errorf("config: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	opts := totals.Options{
		Provider:        p,
		Codec:           cd,
		Logger:          log,
		Hooks:           hooks,
		DefaultTTL:      cfg.TTL,
		CleanupInterval: cfg.CleanupInterval,
		GenRetention:    cfg.GenRetention,
	}
	if cfg.GenStore == "redis" {
		c, err := redisClient()
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		gs, err := gen.NewRedisGenStore(gen.RedisConfig{
			Client:      c,
			Prefix:      cfg.Redis.Prefix,
			TTL:         cfg.Redis.GenTTL,
			CloseClient: cfg.Provider != "redis",
		})
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		opts.GenStore = gs
	}

	s, err := totals.New(opts)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ManagerOptions binds a manager to the configured namespace and store.
func ManagerOptions(cfg StoreConfig, store listcount.Store, log listcount.Logger, hooks listcount.Hooks) listcount.Options {
	return listcount.Options{
		Namespace: cfg.Namespace,
		Store:     store,
		StoreTTL:  cfg.TTL,
		Logger:    log,
		Hooks:     hooks,
	}
}

// ClientOptions converts the client section into client.Config.
func ClientOptions(cfg ClientConfig, log listcount.Logger) client.Config {
	h := make(http.Header, len(cfg.Header))
	for k, v := range cfg.Header {
		h.Set(k, v)
	}
	return client.Config{
		URL:     cfg.URL,
		Timeout: cfg.Timeout,
		Header:  h,
		Logger:  log,
	}
}
