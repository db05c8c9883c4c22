package services

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

const tokenURIConcurrency = 8

// Reasons reported for enrollment records that did not produce a row.
const (
	SkipNoIssuedEvent     = "no_issued_event"
	SkipUnknownCredential = "unknown_credential"
	SkipTokenBurned       = "token_burned"
)

type TransferRequest struct {
	ChainID int64
	TxHash  string
	// CourseAddress is optional; when empty it is taken from the Issued logs.
	CourseAddress string
	Enrollments   []types.Enrollment
}

type SkippedEnrollment struct {
	Address string `json:"address"`
	TokenID string `json:"token_id,omitempty"`
	CID     string `json:"credential_cid,omitempty"`
	Reason  string `json:"reason"`
}

type TransferResult struct {
	CourseAddress string                  `json:"course_address"`
	Enrolled      []*types.UserCredential `json:"enrolled"`
	Inserted      int                     `json:"inserted"`
	Skipped       []SkippedEnrollment     `json:"skipped"`
	MarkerCleared bool                    `json:"marker_cleared"`
}

// TransferReconciler turns the Issued events of a confirmed mint into
// user_credentials rows.
type TransferReconciler interface {
	Reconcile(ctx context.Context, caller string, req TransferRequest) (*TransferResult, error)
}

type transferReconciler struct {
	log         *logger.Logger
	chains      chain.Clients
	roles       RoleService
	credentials repos.CredentialRepo
	enrollments aggregates.EnrollmentAggregate
	locker      redisx.Locker
}

func NewTransferReconciler(
	log *logger.Logger,
	chains chain.Clients,
	roles RoleService,
	credentials repos.CredentialRepo,
	enrollments aggregates.EnrollmentAggregate,
	locker redisx.Locker,
) TransferReconciler {
	return &transferReconciler{
		log:         log.With("service", "TransferReconciler"),
		chains:      chains,
		roles:       roles,
		credentials: credentials,
		enrollments: enrollments,
		locker:      locker,
	}
}

type issuedToken struct {
	event  contracts.IssuedEvent
	cid    string
	burned bool
}

func (r *transferReconciler) Reconcile(ctx context.Context, caller string, req TransferRequest) (out *TransferResult, err error) {
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
	enrollments, err := normalizeEnrollments(req.Enrollments)
	if err != nil {
		return nil, err
	}
	var course common.Address
	if strings.TrimSpace(req.CourseAddress) != "" {
		if course, err = parseAddress("course", req.CourseAddress); err != nil {
			return nil, err
		}
	}

	ctx, span := observability.StartSpan(ctx, "reconcile.transfer",
		attribute.Int64("chain_id", req.ChainID),
		attribute.String("tx_hash", lowerHash(hash)),
		attribute.Int("enrollments", len(enrollments)),
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

	// "No effect" is judged on the whole receipt; the course filter only
	// narrows which events are applied.
	all := contracts.DecodeIssued(common.Address{}, receipt.Logs)
	if len(all) == 0 {
		// The transaction is final and will never produce the effect, so the
		// caller's own transfer marker is consumed.
		res, aggErr := r.enrollments.RecordMint(ctx, aggregates.RecordMintInput{TxHash: lowerHash(hash), Caller: lower(callerAddr)})
		if aggErr != nil {
			return nil, aggErr
		}
		r.log.For(ctx).Warn("mint transaction has no Issued events", "tx_hash", lowerHash(hash), "marker_cleared", res.MarkerCleared)
		return nil, apierr.Unprocessable(CodeNoIssuedEvents, "transaction contains no Issued events")
	}
	if course == (common.Address{}) {
		course = all[0].Contract
	}
	events := contracts.DecodeIssued(course, receipt.Logs)
	if len(events) == 0 {
		return nil, apierr.Unprocessable(CodeCourseMismatch, "transaction has no Issued events for this course")
	}
	span.SetAttributes(attribute.String("course", lower(course)))

	if err := r.roles.RequireCourseAdmin(ctx, req.ChainID, course, callerAddr); err != nil {
		return nil, err
	}

	byAddress := make(map[common.Address]types.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byAddress[common.HexToAddress(e.Address)] = e
	}
	matched := make(map[common.Address]bool, len(enrollments))
	var issued []issuedToken
	for _, ev := range events {
		if _, ok := byAddress[ev.To]; !ok {
			continue
		}
		matched[ev.To] = true
		issued = append(issued, issuedToken{event: ev})
	}

	result := &TransferResult{CourseAddress: lower(course)}
	for _, e := range enrollments {
		if !matched[common.HexToAddress(e.Address)] {
			result.Skipped = append(result.Skipped, SkippedEnrollment{Address: e.Address, Reason: SkipNoIssuedEvent})
		}
	}

	if err := r.resolveCIDs(ctx, contracts.NewCredential(course, client), issued); err != nil {
		return nil, chainError(err)
	}

	key := types.CourseKey{Address: lower(course), ChainID: req.ChainID}
	cids := make([]string, 0, len(issued))
	for _, it := range issued {
		if !it.burned && it.cid != "" {
			cids = append(cids, it.cid)
		}
	}
	known, err := r.credentials.GetByCIDs(dbctx.Context{Ctx: ctx}, key, cids)
	if err != nil {
		return nil, err
	}

	rows := make([]*types.UserCredential, 0, len(issued))
	for _, it := range issued {
		to := lower(it.event.To)
		tokenID := it.event.TokenID.String()
		if it.burned {
			result.Skipped = append(result.Skipped, SkippedEnrollment{Address: to, TokenID: tokenID, Reason: SkipTokenBurned})
			continue
		}
		cred, ok := known[it.cid]
		if !ok {
			result.Skipped = append(result.Skipped, SkippedEnrollment{Address: to, TokenID: tokenID, CID: it.cid, Reason: SkipUnknownCredential})
			continue
		}
		rec := byAddress[it.event.To]
		rows = append(rows, &types.UserCredential{
			CourseAddress:  key.Address,
			ChainID:        key.ChainID,
			UserAddress:    to,
			TokenID:        tokenID,
			CredentialType: credentialType(it.event.Role, cred),
			CredentialCID:  it.cid,
			Email:          rec.Email,
			Discord:        rec.Discord,
			TxHash:         lowerHash(hash),
			Verified:       true,
		})
	}

	res, err := r.enrollments.RecordMint(ctx, aggregates.RecordMintInput{Rows: rows, TxHash: lowerHash(hash), Caller: lower(callerAddr)})
	if err != nil {
		return nil, err
	}
	result.Enrolled = rows
	result.Inserted = res.Inserted
	result.MarkerCleared = res.MarkerCleared
	if result.Skipped == nil {
		result.Skipped = []SkippedEnrollment{}
	}
	r.log.For(ctx).Info("transfer reconciled",
		"course", key.Address,
		"chain_id", key.ChainID,
		"tx_hash", lowerHash(hash),
		"inserted", res.Inserted,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// resolveCIDs reads tokenURI for every issued token. A revert means the token
// was burned after the mint.
func (r *transferReconciler) resolveCIDs(ctx context.Context, cred *contracts.Credential, issued []issuedToken) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tokenURIConcurrency)
	for i := range issued {
		i := i
		g.Go(func() error {
			uri, err := cred.TokenURI(gctx, new(big.Int).Set(issued[i].event.TokenID))
			if err != nil {
				if contracts.IsRevert(err) {
					issued[i].burned = true
					return nil
				}
				return fmt.Errorf("tokenURI(%s): %w", issued[i].event.TokenID, err)
			}
			issued[i].cid = contracts.CIDFromURI(uri)
			return nil
		})
	}
	return g.Wait()
}

// credentialType prefers the role emitted with the mint; custom credentials
// fall back to the kind recorded on the credential row.
func credentialType(role contracts.Role, cred *types.Credential) string {
	tag := contracts.RoleTag(role)
	if tag == contracts.TagOther && cred != nil && contracts.ValidTag(cred.Kind) {
		return cred.Kind
	}
	return tag
}
