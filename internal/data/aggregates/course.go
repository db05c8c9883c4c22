package aggregates

import (
	"context"
	"strings"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

type CourseAggregateDeps struct {
	Base BaseDeps

	Courses repos.CourseRepo
	Pending repos.PendingTransactionRepo
}

type courseAggregate struct {
	deps CourseAggregateDeps
}

func NewCourseAggregate(deps CourseAggregateDeps) domainagg.CourseAggregate {
	deps.Base = deps.Base.withDefaults()
	return &courseAggregate{deps: deps}
}

func (a *courseAggregate) Contract() domainagg.Contract {
	return domainagg.CourseAggregateContract
}

func (a *courseAggregate) RecordCreation(ctx context.Context, in domainagg.RecordCreationInput) (domainagg.RecordCreationResult, error) {
	const op = "Courses.Course.RecordCreation"
	var out domainagg.RecordCreationResult
	c := in.Course
	if c == nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course", nil)
	}
	if strings.TrimSpace(c.Address) == "" || c.ChainID == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing course address or chain_id", nil)
	}
	if strings.TrimSpace(c.OwnerAddress) == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing owner_address", nil)
	}
	if a.deps.Courses == nil || a.deps.Pending == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "course aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		inserted, err := a.deps.Courses.Create(dbc, c)
		if err != nil {
			return err
		}
		out.Created = inserted
		if inserted {
			out.Course = c
		} else {
			existing, err := a.deps.Courses.GetByAddress(dbc, types.CourseKey{Address: c.Address, ChainID: c.ChainID})
			if err != nil {
				return err
			}
			if existing == nil {
				return InvariantError("course insert skipped but no existing row found")
			}
			out.Course = existing
		}
		cleared, err := clearMarker(dbc, a.deps.Pending, in.TxHash, in.Caller, types.ActionCreateCourse)
		out.MarkerCleared = cleared
		return err
	})
	if err != nil {
		return domainagg.RecordCreationResult{}, err
	}
	return out, nil
}
