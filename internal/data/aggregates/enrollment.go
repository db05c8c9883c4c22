package aggregates

import (
	"context"
	"strings"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

type EnrollmentAggregateDeps struct {
	Base BaseDeps

	UserCredentials repos.UserCredentialRepo
	Pending         repos.PendingTransactionRepo
}

type enrollmentAggregate struct {
	deps EnrollmentAggregateDeps
}

func NewEnrollmentAggregate(deps EnrollmentAggregateDeps) domainagg.EnrollmentAggregate {
	deps.Base = deps.Base.withDefaults()
	return &enrollmentAggregate{deps: deps}
}

func (a *enrollmentAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func (a *enrollmentAggregate) RecordMint(ctx context.Context, in domainagg.RecordMintInput) (domainagg.RecordMintResult, error) {
	const op = "Courses.Enrollment.RecordMint"
	var out domainagg.RecordMintResult
	for i, row := range in.Rows {
		if row == nil || row.CourseAddress == "" || row.ChainID == 0 || row.UserAddress == "" || row.TokenID == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "incomplete user credential row", nil)
		}
		if strings.TrimSpace(row.TxHash) == "" {
			in.Rows[i].TxHash = in.TxHash
		}
	}
	if a.deps.UserCredentials == nil || a.deps.Pending == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		n, err := a.deps.UserCredentials.CreateIgnoreDuplicates(dbc, in.Rows)
		if err != nil {
			return err
		}
		out.Inserted = int(n)
		cleared, err := clearMarker(dbc, a.deps.Pending, in.TxHash, in.Caller, types.ActionTransferCredentials)
		out.MarkerCleared = cleared
		return err
	})
	if err != nil {
		return domainagg.RecordMintResult{}, err
	}
	return out, nil
}

func (a *enrollmentAggregate) RecordBurn(ctx context.Context, in domainagg.RecordBurnInput) (domainagg.RecordBurnResult, error) {
	const op = "Courses.Enrollment.RecordBurn"
	var out domainagg.RecordBurnResult
	for _, k := range in.Keys {
		if k.CourseAddress == "" || k.ChainID == 0 || k.UserAddress == "" || k.TokenID == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "incomplete token key", nil)
		}
	}
	if len(in.Keys) == 0 && strings.TrimSpace(in.TxHash) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "nothing to record", nil)
	}
	if a.deps.UserCredentials == nil || a.deps.Pending == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "enrollment aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		n, err := a.deps.UserCredentials.DeleteByTokens(dbc, in.Keys)
		if err != nil {
			return err
		}
		out.Deleted = int(n)
		cleared, err := clearMarker(dbc, a.deps.Pending, in.TxHash, in.Caller, types.ActionBurnCredential)
		out.MarkerCleared = cleared
		return err
	})
	if err != nil {
		return domainagg.RecordBurnResult{}, err
	}
	return out, nil
}
