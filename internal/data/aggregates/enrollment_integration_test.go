package aggregates_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/data/repos"
	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dae-backend/internal/domain"
	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

type enrollmentFixture struct {
	agg     domainagg.EnrollmentAggregate
	ucs     repos.UserCredentialRepo
	pending repos.PendingTransactionRepo
	db      *gorm.DB
	course  *types.Course
}

func newEnrollment(t *testing.T) enrollmentFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ucs := repos.NewUserCredentialRepo(db, log)
	pending := repos.NewPendingTransactionRepo(db, log)
	agg := aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
		Base:            aggregates.BaseDeps{DB: db, Log: log},
		UserCredentials: ucs,
		Pending:         pending,
	})
	course := testutil.SeedCourse(t, context.Background(), db, 137, testutil.Address(t))
	return enrollmentFixture{agg: agg, ucs: ucs, pending: pending, db: db, course: course}
}

func TestEnrollmentRecordMintReplayCreatesNoDuplicates(t *testing.T) {
	f := newEnrollment(t)
	agg, ucs, course := f.agg, f.ucs, f.course
	ctx := context.Background()
	admin := testutil.Address(t)
	student := testutil.Address(t)
	marker := testutil.SeedPending(t, ctx, f.db, 137, admin, types.ActionTransferCredentials, nil)

	rows := func() []*types.UserCredential {
		return []*types.UserCredential{{
			CourseAddress: course.Address, ChainID: 137, UserAddress: student, TokenID: "7",
			CredentialType: "student", Verified: true,
		}}
	}
	res, err := agg.RecordMint(ctx, domainagg.RecordMintInput{Rows: rows(), TxHash: marker.TxHash, Caller: admin})
	if err != nil || res.Inserted != 1 || !res.MarkerCleared {
		t.Fatalf("RecordMint: res=%+v err=%v", res, err)
	}
	res, err = agg.RecordMint(ctx, domainagg.RecordMintInput{Rows: rows(), TxHash: marker.TxHash, Caller: admin})
	if err != nil || res.Inserted != 0 || res.MarkerCleared {
		t.Fatalf("replay RecordMint: res=%+v err=%v", res, err)
	}

	got, err := ucs.ListByCourse(dbctx.Context{Ctx: ctx}, types.CourseKey{Address: course.Address, ChainID: 137}, "")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one row, err=%v len=%d", err, len(got))
	}
	if got[0].TxHash != marker.TxHash {
		t.Fatalf("row should carry the mint tx hash, got %q", got[0].TxHash)
	}
}

func TestEnrollmentRecordBurnDeletesRowAndMarker(t *testing.T) {
	f := newEnrollment(t)
	agg, ucs, course, db := f.agg, f.ucs, f.course, f.db
	ctx := context.Background()
	user := testutil.Address(t)
	testutil.SeedUserCredential(t, ctx, db, course, user, "3", "student")
	marker := testutil.SeedPending(t, ctx, db, 137, user, types.ActionBurnCredential, nil)

	key := types.TokenKey{CourseAddress: course.Address, ChainID: 137, UserAddress: user, TokenID: "3"}
	res, err := agg.RecordBurn(ctx, domainagg.RecordBurnInput{Keys: []types.TokenKey{key}, TxHash: marker.TxHash, Caller: user})
	if err != nil || res.Deleted != 1 || !res.MarkerCleared {
		t.Fatalf("RecordBurn: res=%+v err=%v", res, err)
	}
	if row, _ := ucs.GetByToken(dbctx.Context{Ctx: ctx}, key); row != nil {
		t.Fatalf("row should be deleted")
	}
}

func TestEnrollmentRecordBurnWithoutKeysStillClearsMarker(t *testing.T) {
	f := newEnrollment(t)
	agg := f.agg
	ctx := context.Background()
	owner := testutil.Address(t)
	marker := testutil.SeedPending(t, ctx, f.db, 137, owner, types.ActionBurnCredential, nil)

	res, err := agg.RecordBurn(ctx, domainagg.RecordBurnInput{TxHash: marker.TxHash, Caller: owner})
	if err != nil || res.Deleted != 0 || !res.MarkerCleared {
		t.Fatalf("RecordBurn: res=%+v err=%v", res, err)
	}
	if _, err := agg.RecordBurn(ctx, domainagg.RecordBurnInput{}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for empty input, got %v", err)
	}
}

func TestEnrollmentLeavesForeignMarkersInPlace(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	owner, stranger := testutil.Address(t), testutil.Address(t)
	mint := testutil.SeedPending(t, ctx, f.db, 137, owner, types.ActionTransferCredentials, nil)

	// Another user's burn run over the owner's mint hash.
	res, err := f.agg.RecordBurn(ctx, domainagg.RecordBurnInput{TxHash: mint.TxHash, Caller: stranger})
	if err != nil || res.MarkerCleared {
		t.Fatalf("stranger RecordBurn: res=%+v err=%v", res, err)
	}
	// The owner's own burn run does not match the recorded action either.
	res, err = f.agg.RecordBurn(ctx, domainagg.RecordBurnInput{TxHash: mint.TxHash, Caller: owner})
	if err != nil || res.MarkerCleared {
		t.Fatalf("cross-action RecordBurn: res=%+v err=%v", res, err)
	}
	mintRes, err := f.agg.RecordMint(ctx, domainagg.RecordMintInput{TxHash: mint.TxHash, Caller: stranger})
	if err != nil || mintRes.MarkerCleared {
		t.Fatalf("stranger RecordMint: res=%+v err=%v", mintRes, err)
	}
	if got, _ := f.pending.GetByHash(dbc, mint.TxHash, owner); got == nil {
		t.Fatalf("owner's marker must survive foreign reconciliations")
	}

	mintRes, err = f.agg.RecordMint(ctx, domainagg.RecordMintInput{TxHash: mint.TxHash, Caller: owner})
	if err != nil || !mintRes.MarkerCleared {
		t.Fatalf("owner RecordMint: res=%+v err=%v", mintRes, err)
	}
}
