package services

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

type BurnRequest struct {
	ChainID int64
	TxHash  string
	// CourseAddress restricts decoding to one contract when set.
	CourseAddress string
}

// DirectBurnRequest identifies a single token whose mirror row should be
// removed without a transaction hash.
type DirectBurnRequest struct {
	ChainID       int64
	CourseAddress string
	UserAddress   string
	TokenID       string
}

type BurnResult struct {
	Burned        []types.TokenKey `json:"burned"`
	Deleted       int              `json:"deleted"`
	MarkerCleared bool             `json:"marker_cleared"`
}

type BurnReconciler interface {
	ReconcileTx(ctx context.Context, caller string, req BurnRequest) (*BurnResult, error)
	DeleteDirect(ctx context.Context, caller string, req DirectBurnRequest) (*BurnResult, error)
}

type burnReconciler struct {
	log         *logger.Logger
	chains      chain.Clients
	roles       RoleService
	enrollments aggregates.EnrollmentAggregate
	locker      redisx.Locker
}

func NewBurnReconciler(
	log *logger.Logger,
	chains chain.Clients,
	roles RoleService,
	enrollments aggregates.EnrollmentAggregate,
	locker redisx.Locker,
) BurnReconciler {
	return &burnReconciler{
		log:         log.With("service", "BurnReconciler"),
		chains:      chains,
		roles:       roles,
		enrollments: enrollments,
		locker:      locker,
	}
}

// ReconcileTx waits for the chain's confirmation depth, then deletes the rows
// for every Transfer-to-zero in the receipt. A receipt without any burn still
// consumes the caller's burn marker and reports no_burn_events.
func (r *burnReconciler) ReconcileTx(ctx context.Context, caller string, req BurnRequest) (out *BurnResult, err error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	if err := requireChainID(req.ChainID); err != nil {
		return nil, err
	}
	hash, err := parseTxHash(req.TxHash)
	if err != nil {
		return nil, err
	}
	var course common.Address
	if strings.TrimSpace(req.CourseAddress) != "" {
		if course, err = parseAddress("course", req.CourseAddress); err != nil {
			return nil, err
		}
	}

	ctx, span := observability.StartSpan(ctx, "reconcile.burn",
		attribute.Int64("chain_id", req.ChainID),
		attribute.String("tx_hash", lowerHash(hash)),
	)
	defer func() { observability.EndSpan(span, err) }()

	client, cfg, err := r.chains.Client(ctx, req.ChainID)
	if err != nil {
		return nil, chainError(err)
	}
	release, err := lockTx(ctx, r.locker, req.ChainID, hash, lockTTL(cfg))
	if err != nil {
		return nil, err
	}
	defer release()

	_, receipt, err := chain.FetchReceipt(ctx, client, hash)
	if err != nil {
		return nil, chainError(err)
	}
	if err := chain.WaitForConfirmations(ctx, client, receipt, cfg.MinConfirmations, cfg.ConfirmationTimeout); err != nil {
		return nil, chainError(err)
	}

	// "No effect" is judged on the whole receipt; a course filter that
	// matches nothing is a caller error and leaves the marker alone.
	burns := contracts.DecodeBurns(common.Address{}, receipt.Logs)
	if course != (common.Address{}) && len(burns) > 0 {
		if burns = contracts.DecodeBurns(course, receipt.Logs); len(burns) == 0 {
			return nil, apierr.Unprocessable(CodeCourseMismatch, "transaction has no burn events for this course")
		}
	}
	keys := make([]types.TokenKey, 0, len(burns))
	for _, b := range burns {
		keys = append(keys, types.TokenKey{
			CourseAddress: lower(b.Contract),
			ChainID:       req.ChainID,
			UserAddress:   lower(b.From),
			TokenID:       b.TokenID.String(),
		})
	}

	res, err := r.enrollments.RecordBurn(ctx, aggregates.RecordBurnInput{Keys: keys, TxHash: lowerHash(hash), Caller: lower(callerAddr)})
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		r.log.For(ctx).Warn("burn transaction has no burn events", "tx_hash", lowerHash(hash), "marker_cleared", res.MarkerCleared)
		return nil, apierr.Unprocessable(CodeNoBurnEvents, "transaction contains no burn events")
	}
	r.log.For(ctx).Info("burn reconciled",
		"tx_hash", lowerHash(hash),
		"chain_id", req.ChainID,
		"burns", len(keys),
		"deleted", res.Deleted,
		"caller", lower(callerAddr),
	)
	return &BurnResult{Burned: keys, Deleted: res.Deleted, MarkerCleared: res.MarkerCleared}, nil
}

// DeleteDirect removes one mirror row after confirming on-chain that the
// token no longer exists.
func (r *burnReconciler) DeleteDirect(ctx context.Context, caller string, req DirectBurnRequest) (out *BurnResult, err error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	if err := requireChainID(req.ChainID); err != nil {
		return nil, err
	}
	course, err := parseAddress("course", req.CourseAddress)
	if err != nil {
		return nil, err
	}
	user, err := parseAddress("user", req.UserAddress)
	if err != nil {
		return nil, err
	}
	tokenID, err := parseTokenID(req.TokenID)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "reconcile.burn.direct",
		attribute.Int64("chain_id", req.ChainID),
		attribute.String("course", lower(course)),
		attribute.String("token_id", tokenID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	if err := r.roles.RequireCourseAdmin(ctx, req.ChainID, course, callerAddr); err != nil {
		return nil, err
	}
	client, _, err := r.chains.Client(ctx, req.ChainID)
	if err != nil {
		return nil, chainError(err)
	}
	if owner, err := contracts.NewCredential(course, client).OwnerOf(ctx, tokenID); err == nil {
		r.log.For(ctx).Warn("direct burn refused, token still exists", "course", lower(course), "token_id", tokenID.String(), "owner", lower(owner))
		return nil, apierr.Unprocessable("token_not_burned", "token still exists on-chain")
	} else if !contracts.IsRevert(err) {
		return nil, chainError(err)
	}

	key := types.TokenKey{
		CourseAddress: lower(course),
		ChainID:       req.ChainID,
		UserAddress:   lower(user),
		TokenID:       tokenID.String(),
	}
	res, err := r.enrollments.RecordBurn(ctx, aggregates.RecordBurnInput{Keys: []types.TokenKey{key}})
	if err != nil {
		return nil, err
	}
	if res.Deleted == 0 {
		return nil, apierr.NotFound("user_credential_not_found", "no credential row for this token")
	}
	r.log.For(ctx).Info("credential row deleted", "course", key.CourseAddress, "token_id", key.TokenID, "user_address", key.UserAddress)
	return &BurnResult{Burned: []types.TokenKey{key}, Deleted: res.Deleted}, nil
}
