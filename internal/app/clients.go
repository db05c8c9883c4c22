package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/metadata"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

type Clients struct {
	Redis    *goredis.Client
	Nonces   redisx.NonceStore
	Locker   redisx.Locker
	Chains   *chain.Pool
	Registry *chain.Registry
	Metadata metadata.Fetcher
}

// wireClients connects redis when REDIS_ADDR is set and otherwise falls back
// to in-process nonce and lock stores, which only hold for a single replica.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	registry, err := cfg.ChainRegistry()
	if err != nil {
		return Clients{}, fmt.Errorf("chain registry: %w", err)
	}
	out := Clients{
		Registry: registry,
		Chains:   chain.NewPool(log, registry),
		Metadata: metadata.NewFetcher(log, metadata.Config{
			Gateway: cfg.IPFSGateway,
			Timeout: cfg.MetadataTimeout,
		}),
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			out.Chains.Close()
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.Nonces = redisx.NewNonceStore(rdb)
		out.Locker = redisx.NewLocker(log, rdb, uuid.NewString)
	} else {
		log.Warn("REDIS_ADDR not set; nonces and reconcile locks are process-local")
		out.Nonces = redisx.NewMemoryNonceStore()
		out.Locker = redisx.NewMemoryLocker(uuid.NewString)
	}
	return out, nil
}

func (c Clients) Close() {
	if c.Chains != nil {
		c.Chains.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
