package redisx

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dae-backend/internal/platform/logger"
)

func TestMemoryNonceIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNonceStore()
	if err := store.Issue(ctx, "0xABC", "n1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := store.Get(ctx, "0xabc")
	if err != nil || got != "n1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if ok, _ := store.Consume(ctx, "0xabc", "other"); ok {
		t.Fatalf("Consume must not delete a different nonce")
	}
	if ok, err := store.Consume(ctx, "0xabc", "n1"); err != nil || !ok {
		t.Fatalf("Consume = %v, %v", ok, err)
	}
	if ok, _ := store.Consume(ctx, "0xabc", "n1"); ok {
		t.Fatalf("nonce consumed twice")
	}
	if _, err := store.Get(ctx, "0xabc"); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected ErrNonceNotFound after consume, got %v", err)
	}
}

func TestMemoryNonceExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNonceStore().(*memoryNonces)
	now := time.Now()
	store.s.now = func() time.Time { return now }
	_ = store.Issue(ctx, "0xabc", "n1")
	now = now.Add(NonceTTL + time.Second)
	if _, err := store.Get(ctx, "0xabc"); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected expired nonce, got %v", err)
	}
	if ok, _ := store.Consume(ctx, "0xabc", "n1"); ok {
		t.Fatalf("expired nonce must not be consumable")
	}
}

func TestMemoryStoreEvictsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryNonceStore().(*memoryNonces)
	now := time.Now()
	store.s.now = func() time.Time { return now }
	for _, a := range []string{"0x1", "0x2", "0x3"} {
		_ = store.Issue(ctx, a, "n")
	}
	now = now.Add(NonceTTL + sweepInterval)
	_ = store.Issue(ctx, "0x4", "n")
	if got := store.s.size(); got != 1 {
		t.Fatalf("expired nonces should be swept, %d entries left", got)
	}
}

func TestMemoryLockerIsExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker(uuid.NewString)
	release, ok, err := l.Acquire(ctx, "tx:1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	if _, ok, _ := l.Acquire(ctx, "tx:1", time.Minute); ok {
		t.Fatalf("second Acquire should fail while held")
	}
	if _, ok, _ := l.Acquire(ctx, "tx:2", time.Minute); !ok {
		t.Fatalf("different key should be free")
	}
	release()
	if _, ok, _ := l.Acquire(ctx, "tx:1", time.Minute); !ok {
		t.Fatalf("Acquire after release should succeed")
	}
}

func TestRedisNonceAndLock(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, logger.Nop(), addr, "", 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer rdb.Close()

	addrKey := "0x" + uuid.NewString()
	nonces := NewNonceStore(rdb)
	if err := nonces.Issue(ctx, addrKey, "n1"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got, err := nonces.Get(ctx, addrKey); err != nil || got != "n1" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if ok, err := nonces.Consume(ctx, addrKey, "stale"); err != nil || ok {
		t.Fatalf("Consume with a stale nonce = %v, %v", ok, err)
	}
	if ok, err := nonces.Consume(ctx, addrKey, "n1"); err != nil || !ok {
		t.Fatalf("Consume = %v, %v", ok, err)
	}
	if _, err := nonces.Get(ctx, addrKey); !errors.Is(err, ErrNonceNotFound) {
		t.Fatalf("expected ErrNonceNotFound, got %v", err)
	}

	locker := NewLocker(logger.Nop(), rdb, uuid.NewString)
	key := "test:" + uuid.NewString()
	release, ok, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}
	if _, ok, _ := locker.Acquire(ctx, key, time.Minute); ok {
		t.Fatalf("lock should be exclusive")
	}
	release()
	if r, ok, _ := locker.Acquire(ctx, key, time.Minute); !ok {
		t.Fatalf("lock should be free after release")
	} else {
		r()
	}
}
