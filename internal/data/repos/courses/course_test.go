package courses

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

func TestCourseRepoCreateIsInsertOrKeep(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	addr := strings.ToUpper(testutil.Address(t)[2:])
	owner := testutil.Address(t)
	first := &types.Course{Address: "0x" + addr, ChainID: 137, OwnerAddress: owner, Name: "First", Description: "d"}
	inserted, err := repo.Create(dbc, first)
	if err != nil || !inserted {
		t.Fatalf("Create first: inserted=%v err=%v", inserted, err)
	}
	if first.Address != "0x"+strings.ToLower(addr) {
		t.Fatalf("address not lower-cased: %s", first.Address)
	}

	dup := &types.Course{Address: "0x" + addr, ChainID: 137, OwnerAddress: owner, Name: "Second", Description: "d"}
	inserted, err = repo.Create(dbc, dup)
	if err != nil || inserted {
		t.Fatalf("Create duplicate: inserted=%v err=%v", inserted, err)
	}

	other := &types.Course{Address: "0x" + addr, ChainID: 1, OwnerAddress: owner, Name: "Other chain", Description: "d"}
	if inserted, err := repo.Create(dbc, other); err != nil || !inserted {
		t.Fatalf("same address on other chain should insert: inserted=%v err=%v", inserted, err)
	}

	got, err := repo.GetByAddress(dbc, types.CourseKey{Address: "0x" + addr, ChainID: 137})
	if err != nil || got == nil {
		t.Fatalf("GetByAddress: %v %v", got, err)
	}
	if got.Name != "First" {
		t.Fatalf("duplicate overwrote row: %q", got.Name)
	}

	if rows, err := repo.ListByOwner(dbc, strings.ToUpper(owner)); err != nil || len(rows) != 2 {
		t.Fatalf("ListByOwner: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.List(dbc, CourseListFilter{ChainID: 1}); err != nil || len(rows) < 1 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}

	missing, err := repo.GetByAddress(dbc, types.CourseKey{Address: testutil.Address(t), ChainID: 137})
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing course, got %v %v", missing, err)
	}
}

func TestCourseRepoUpdateMetadata(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCourseRepo(db, testutil.Logger(t))

	c := testutil.SeedCourse(t, ctx, tx, 137, testutil.Address(t))
	name := "  Renamed "
	karma := int64(50)
	got, err := repo.UpdateMetadata(dbc, types.CourseKey{Address: c.Address, ChainID: c.ChainID}, CourseMetadataUpdate{
		Name:              &name,
		MagisterBaseKarma: &karma,
	})
	if err != nil || got == nil {
		t.Fatalf("UpdateMetadata: %v %v", got, err)
	}
	if got.Name != "Renamed" || got.MagisterBaseKarma != 50 || got.Description != c.Description {
		t.Fatalf("unexpected row after update: %+v", got)
	}

	missing, err := repo.UpdateMetadata(dbc, types.CourseKey{Address: testutil.Address(t), ChainID: 137}, CourseMetadataUpdate{Name: &name})
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing course, got %v %v", missing, err)
	}
}
