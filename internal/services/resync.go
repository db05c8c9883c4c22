package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

const (
	ResyncReconciled = "reconciled"
	ResyncFailed     = "failed"
	ResyncSkipped    = "skipped"
)

type ResyncItem struct {
	TxHash  string              `json:"tx_hash"`
	ChainID int64               `json:"chain_id"`
	Action  types.PendingAction `json:"action"`
	Status  string              `json:"status"`
	Code    string              `json:"code,omitempty"`
	Error   string              `json:"error,omitempty"`
}

type ResyncReport struct {
	Items      []ResyncItem `json:"items"`
	Reconciled int          `json:"reconciled"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
}

// ResyncService replays every pending marker of the caller through the
// matching reconciler.
type ResyncService interface {
	Resync(ctx context.Context, caller string) (*ResyncReport, error)
}

type resyncService struct {
	log         *logger.Logger
	pending     repos.PendingTransactionRepo
	courses     CourseReconciler
	transfers   TransferReconciler
	burns       BurnReconciler
	concurrency int
}

func NewResyncService(
	log *logger.Logger,
	pending repos.PendingTransactionRepo,
	courses CourseReconciler,
	transfers TransferReconciler,
	burns BurnReconciler,
	concurrency int,
) ResyncService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &resyncService{
		log:         log.With("service", "ResyncService"),
		pending:     pending,
		courses:     courses,
		transfers:   transfers,
		burns:       burns,
		concurrency: concurrency,
	}
}

func (s *resyncService) Resync(ctx context.Context, caller string) (report *ResyncReport, err error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	markers, err := s.pending.ListByUser(dbctx.Context{Ctx: ctx}, lower(callerAddr))
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "resync",
		attribute.String("caller", lower(callerAddr)),
		attribute.Int("markers", len(markers)),
	)
	defer func() { observability.EndSpan(span, err) }()

	items := make([]ResyncItem, len(markers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, m := range markers {
		i, m := i, m
		g.Go(func() error {
			items[i] = s.replay(gctx, m)
			return nil
		})
	}
	// Workers never return errors; failures are reported per item.
	_ = g.Wait()

	report = &ResyncReport{Items: items}
	for _, it := range items {
		switch it.Status {
		case ResyncReconciled:
			report.Reconciled++
		case ResyncSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	s.log.For(ctx).Info("resync finished",
		"user_address", lower(callerAddr),
		"reconciled", report.Reconciled,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	return report, nil
}

func (s *resyncService) replay(ctx context.Context, m *types.PendingTransaction) ResyncItem {
	item := ResyncItem{TxHash: m.TxHash, ChainID: m.ChainID, Action: m.Action}
	err := s.dispatch(ctx, m)
	if err == nil {
		item.Status = ResyncReconciled
		return item
	}

	item.Status = ResyncFailed
	item.Error = err.Error()
	if ae, ok := apierr.As(err); ok {
		item.Code = ae.Code
		if ae.Code == CodeReconcileInProgress {
			item.Status = ResyncSkipped
			return item
		}
		if ae.Status >= 500 {
			item.Error = "internal error"
		}
	} else if code := aggregates.CodeOf(err); code != "" && code != aggregates.CodeInternal {
		item.Code = string(code)
	} else {
		item.Code = string(aggregates.CodeInternal)
		item.Error = "internal error"
	}
	s.log.For(ctx).Warn("resync item failed", "tx_hash", m.TxHash, "action", m.Action, "error", err)

	// Markers consumed by the reconciler (no events) are already gone; the
	// update then matches nothing.
	key := repos.MarkerKey{TxHash: m.TxHash, UserAddress: m.UserAddress, Action: m.Action}
	if ferr := s.pending.RecordFailure(dbctx.Context{Ctx: ctx}, key, err.Error()); ferr != nil {
		s.log.For(ctx).Warn("record resync failure", "tx_hash", m.TxHash, "error", ferr)
	}
	return item
}

func (s *resyncService) dispatch(ctx context.Context, m *types.PendingTransaction) error {
	switch m.Action {
	case types.ActionCreateCourse:
		_, err := s.courses.Reconcile(ctx, m.UserAddress, m.ChainID, m.TxHash)
		return err
	case types.ActionTransferCredentials:
		var p types.TransferPayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return apierr.Unprocessable("invalid_payload", fmt.Sprintf("stored transfer payload: %v", err))
			}
		}
		_, err := s.transfers.Reconcile(ctx, m.UserAddress, TransferRequest{
			ChainID:       m.ChainID,
			TxHash:        m.TxHash,
			CourseAddress: p.CourseAddress,
			Enrollments:   p.Enrollments,
		})
		return err
	case types.ActionBurnCredential:
		var p types.BurnPayload
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return apierr.Unprocessable("invalid_payload", fmt.Sprintf("stored burn payload: %v", err))
			}
		}
		_, err := s.burns.ReconcileTx(ctx, m.UserAddress, BurnRequest{
			ChainID:       m.ChainID,
			TxHash:        m.TxHash,
			CourseAddress: p.CourseAddress,
		})
		return err
	}
	return apierr.Unprocessable("invalid_action", fmt.Sprintf("unknown pending action %q", m.Action))
}
