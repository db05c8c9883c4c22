package transactions

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

func TestPendingTransactionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPendingTransactionRepo(db, testutil.Logger(t))

	user := testutil.Address(t)
	hash := testutil.TxHash(t)
	row := &types.PendingTransaction{TxHash: strings.ToUpper(hash[2:]), ChainID: 137, UserAddress: strings.ToUpper(user), Action: types.ActionCreateCourse}
	row.TxHash = "0x" + row.TxHash
	if err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.TxHash != hash || row.UserAddress != user {
		t.Fatalf("values not normalised: %+v", row)
	}
	if err := repo.Create(dbc, &types.PendingTransaction{TxHash: hash, ChainID: 137, UserAddress: user, Action: "mint"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}

	key := MarkerKey{TxHash: hash, UserAddress: user}
	if err := repo.RecordFailure(dbc, key, "rpc timeout"); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := repo.RecordFailure(dbc, key, strings.Repeat("x", 4000)); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	got, err := repo.GetByHash(dbc, strings.ToUpper(hash), strings.ToUpper(user))
	if err != nil || got == nil {
		t.Fatalf("GetByHash: %v %v", got, err)
	}
	if got.Attempts != 2 || len(got.LastError) != maxLastErrorLen {
		t.Fatalf("unexpected failure bookkeeping: attempts=%d len=%d", got.Attempts, len(got.LastError))
	}

	if rows, err := repo.ListByUser(dbc, user); err != nil || len(rows) != 1 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
	if n, err := repo.DeleteMarker(dbc, MarkerKey{TxHash: hash, UserAddress: user, Action: types.ActionBurnCredential}); err != nil || n != 0 {
		t.Fatalf("DeleteMarker with another action: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteMarker(dbc, MarkerKey{TxHash: hash, UserAddress: testutil.Address(t)}); err != nil || n != 0 {
		t.Fatalf("DeleteMarker for another user: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteMarker(dbc, MarkerKey{TxHash: hash, UserAddress: user, Action: types.ActionCreateCourse}); err != nil || n != 1 {
		t.Fatalf("DeleteMarker: n=%d err=%v", n, err)
	}
	if n, err := repo.DeleteMarker(dbc, key); err != nil || n != 0 {
		t.Fatalf("second DeleteMarker: n=%d err=%v", n, err)
	}
	if _, err := repo.DeleteMarker(dbc, MarkerKey{TxHash: hash}); err == nil {
		t.Fatalf("DeleteMarker without a user must fail")
	}
}

func TestPendingTransactionRepoScopesHashPerUser(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewPendingTransactionRepo(db, testutil.Logger(t))

	hash := testutil.TxHash(t)
	owner, stranger := testutil.Address(t), testutil.Address(t)
	if err := repo.Create(dbc, &types.PendingTransaction{TxHash: hash, ChainID: 137, UserAddress: stranger, Action: types.ActionBurnCredential}); err != nil {
		t.Fatalf("stranger Create: %v", err)
	}
	if err := repo.Create(dbc, &types.PendingTransaction{TxHash: hash, ChainID: 137, UserAddress: owner, Action: types.ActionTransferCredentials}); err != nil {
		t.Fatalf("owner Create after a stranger recorded the hash: %v", err)
	}
	mine, err := repo.GetByHash(dbc, hash, owner)
	if err != nil || mine == nil || mine.Action != types.ActionTransferCredentials {
		t.Fatalf("GetByHash(owner) = %+v, %v", mine, err)
	}
	// Last: a failed statement aborts the transaction on Postgres.
	if err := repo.Create(dbc, &types.PendingTransaction{TxHash: hash, ChainID: 137, UserAddress: owner, Action: types.ActionTransferCredentials}); err == nil {
		t.Fatalf("expected unique violation for the same user and hash")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 10) // two bytes per rune
	got := truncate(s, 5)
	if got != "éé" || !utf8.ValidString(got) {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Fatalf("short strings are kept")
	}
}
