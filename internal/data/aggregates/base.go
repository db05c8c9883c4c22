package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}

// clearMarker deletes the marker the caller recorded for txHash under action.
// Markers of other users or actions stay; a blank hash or caller clears nothing.
func clearMarker(dbc dbctx.Context, pending repos.PendingTransactionRepo, txHash, caller string, action types.PendingAction) (bool, error) {
	if strings.TrimSpace(txHash) == "" || strings.TrimSpace(caller) == "" {
		return false, nil
	}
	n, err := pending.DeleteMarker(dbc, repos.MarkerKey{TxHash: txHash, UserAddress: caller, Action: action})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
