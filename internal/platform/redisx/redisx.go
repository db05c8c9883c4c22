package redisx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/dae-backend/internal/platform/logger"
)

var ErrNonceNotFound = errors.New("nonce not found or expired")

const (
	noncePrefix = "dae:nonce:"
	lockPrefix  = "dae:lock:"
	NonceTTL    = 5 * time.Minute
)

func Connect(ctx context.Context, log *logger.Logger, addr, password string, db int) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Connected to redis", "addr", addr, "db", db)
	return rdb, nil
}

// NonceStore keeps one outstanding sign-in nonce per address. Get leaves the
// nonce in place; Consume deletes it only while it still equals nonce.
type NonceStore interface {
	Issue(ctx context.Context, address, nonce string) error
	Get(ctx context.Context, address string) (string, error)
	Consume(ctx context.Context, address, nonce string) (bool, error)
}

// Locker hands out short-lived exclusive locks. ok is false when the key is
// already held; release is nil in that case.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type redisNonces struct {
	rdb *goredis.Client
}

func NewNonceStore(rdb *goredis.Client) NonceStore {
	return &redisNonces{rdb: rdb}
}

func (s *redisNonces) Issue(ctx context.Context, address, nonce string) error {
	return s.rdb.Set(ctx, noncePrefix+strings.ToLower(address), nonce, NonceTTL).Err()
}

func (s *redisNonces) Get(ctx context.Context, address string) (string, error) {
	nonce, err := s.rdb.Get(ctx, noncePrefix+strings.ToLower(address)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNonceNotFound
	}
	if err != nil {
		return "", err
	}
	return nonce, nil
}

func (s *redisNonces) Consume(ctx context.Context, address, nonce string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.rdb, []string{noncePrefix + strings.ToLower(address)}, nonce).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// compareAndDelete deletes KEYS[1] only if it still holds ARGV[1].
var compareAndDelete = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	log *logger.Logger
	rdb *goredis.Client
	seq func() string
}

func NewLocker(log *logger.Logger, rdb *goredis.Client, token func() string) Locker {
	return &redisLocker{log: log.With("service", "RedisLocker"), rdb: rdb, seq: token}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := l.seq()
	ok, err := l.rdb.SetNX(ctx, lockPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := compareAndDelete.Run(relCtx, l.rdb, []string{lockPrefix + key}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			l.log.Warn("Lock release failed", "key", key, "error", err)
		}
	}
	return release, true, nil
}
