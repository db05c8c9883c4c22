package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

const (
	reconcileLockTTL = 2 * time.Minute

	CodeReconcileInProgress = "reconcile_in_progress"
	CodeNoIssuedEvents      = "no_issued_events"
	CodeNoBurnEvents        = "no_burn_events"
	CodeCourseMismatch      = "course_mismatch"
)

// lockTTL covers the confirmation wait of the chain plus the reconcile work
// that follows it.
func lockTTL(c chain.Chain) time.Duration {
	if c.ConfirmationTimeout <= 0 {
		return reconcileLockTTL
	}
	return c.ConfirmationTimeout + reconcileLockTTL
}

// lockTx serialises reconciliation of one transaction across requests and
// resync workers. A nil locker disables locking.
func lockTx(ctx context.Context, locker redisx.Locker, chainID int64, hash common.Hash, ttl time.Duration) (func(), error) {
	if locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("reconcile:%d:%s", chainID, lowerHash(hash))
	release, ok, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire reconcile lock: %w", err)
	}
	if !ok {
		return nil, apierr.Conflict(CodeReconcileInProgress, "transaction is already being reconciled")
	}
	return release, nil
}
