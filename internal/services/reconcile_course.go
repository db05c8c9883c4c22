package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/metadata"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

type CourseReconcileResult struct {
	Course        *types.Course `json:"course"`
	Created       bool          `json:"created"`
	MarkerCleared bool          `json:"marker_cleared"`
}

// CourseReconciler mirrors a confirmed course deployment into the courses
// table.
type CourseReconciler interface {
	Reconcile(ctx context.Context, caller string, chainID int64, txHash string) (*CourseReconcileResult, error)
}

type courseReconciler struct {
	log     *logger.Logger
	chains  chain.Clients
	fetcher metadata.Fetcher
	courses aggregates.CourseAggregate
	locker  redisx.Locker
}

func NewCourseReconciler(log *logger.Logger, chains chain.Clients, fetcher metadata.Fetcher, courses aggregates.CourseAggregate, locker redisx.Locker) CourseReconciler {
	return &courseReconciler{
		log:     log.With("service", "CourseReconciler"),
		chains:  chains,
		fetcher: fetcher,
		courses: courses,
		locker:  locker,
	}
}

type courseReads struct {
	owner     common.Address
	symbol    string
	maxSupply string
	baseURI   string
	karma     common.Address
}

func (r *courseReconciler) Reconcile(ctx context.Context, caller string, chainID int64, txHash string) (out *CourseReconcileResult, err error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	if err := requireChainID(chainID); err != nil {
		return nil, err
	}
	hash, err := parseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "reconcile.course",
		attribute.Int64("chain_id", chainID),
		attribute.String("tx_hash", lowerHash(hash)),
	)
	defer func() { observability.EndSpan(span, err) }()

	client, cfg, err := r.chains.Client(ctx, chainID)
	if err != nil {
		return nil, chainError(err)
	}
	release, err := lockTx(ctx, r.locker, chainID, hash, lockTTL(cfg))
	if err != nil {
		return nil, err
	}
	defer release()

	tx, receipt, err := chain.FetchReceipt(ctx, client, hash)
	if err != nil {
		return nil, chainError(err)
	}
	if len(receipt.Logs) == 0 {
		return nil, apierr.Unprocessable("no_logs", "transaction emitted no logs")
	}
	if cfg.FactoryAddress != "" && tx.To() != nil && !strings.EqualFold(tx.To().Hex(), cfg.FactoryAddress) {
		return nil, apierr.Unprocessable("unexpected_factory", "transaction was not sent to the configured course factory")
	}

	// The factory announces the deployment; without that event the first log
	// is emitted by the freshly deployed contract.
	courseAddr := receipt.Logs[0].Address
	var announcedKarma common.Address
	if ev, ok := contracts.DecodeCourseCreated(receipt.Logs); ok {
		courseAddr = ev.Course
		announcedKarma = ev.Karma
	}
	span.SetAttributes(attribute.String("course", lower(courseAddr)))

	reads, err := readCourse(ctx, contracts.NewCredential(courseAddr, client))
	if err != nil {
		return nil, chainError(err)
	}
	if reads.karma == (common.Address{}) {
		reads.karma = announcedKarma
	}

	doc, err := r.fetcher.Fetch(ctx, reads.baseURI)
	if err != nil {
		if errors.Is(err, metadata.ErrFetch) || errors.Is(err, metadata.ErrInvalid) {
			return nil, apierr.BadRequest("invalid_metadata", err.Error())
		}
		return nil, err
	}

	course := &types.Course{
		Address:             lower(courseAddr),
		ChainID:             chainID,
		OwnerAddress:        lower(reads.owner),
		Name:                doc.Name,
		Description:         doc.Description,
		Symbol:              reads.symbol,
		MaxSupply:           reads.maxSupply,
		BaseURI:             reads.baseURI,
		ImageURL:            doc.Image,
		AccessURL:           doc.AccessURL,
		Website:             doc.Website,
		SnapshotSpace:       strings.TrimSpace(doc.SnapshotSpace),
		MagisterBaseKarma:   doc.MagisterBaseKarma,
		DiscipulusBaseKarma: doc.DiscipulusBaseKarma,
		CreationTxHash:      lowerHash(hash),
	}
	if reads.karma != (common.Address{}) {
		course.KarmaAddress = lower(reads.karma)
	}
	if len(doc.Attributes) > 0 {
		course.Attributes = datatypes.JSON(doc.Attributes)
	}

	res, err := r.courses.RecordCreation(ctx, aggregates.RecordCreationInput{Course: course, TxHash: lowerHash(hash), Caller: lower(callerAddr)})
	if err != nil {
		return nil, err
	}
	r.log.For(ctx).Info("course reconciled",
		"course", course.Address,
		"chain_id", chainID,
		"created", res.Created,
		"marker_cleared", res.MarkerCleared,
		"caller", lower(callerAddr),
	)
	return &CourseReconcileResult{Course: res.Course, Created: res.Created, MarkerCleared: res.MarkerCleared}, nil
}

// readCourse loads the on-chain course fields concurrently. karmaAccessControl
// is optional on older deployments, so a revert there is not an error.
func readCourse(ctx context.Context, cred *contracts.Credential) (courseReads, error) {
	var out courseReads
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := cred.Owner(gctx)
		out.owner = v
		return err
	})
	g.Go(func() error {
		v, err := cred.Symbol(gctx)
		out.symbol = v
		return err
	})
	g.Go(func() error {
		v, err := cred.MaxSupply(gctx)
		if err == nil {
			out.maxSupply = v.String()
		}
		return err
	})
	g.Go(func() error {
		v, err := cred.BaseURI(gctx)
		out.baseURI = v
		return err
	})
	g.Go(func() error {
		v, err := cred.KarmaAccessControl(gctx)
		if err != nil {
			if contracts.IsRevert(err) || errors.Is(err, contracts.ErrNoCode) {
				return nil
			}
			return err
		}
		out.karma = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return courseReads{}, fmt.Errorf("read course %s: %w", cred.Address().Hex(), err)
	}
	return out, nil
}
