package services

import (
	"net/http"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/chain/chaintest"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

func TestCourseReconcileMirrorsLowercasedOnChainValues(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)
	course, hash := h.deployCourse(owner)
	if _, err := h.pending.Record(h.ctx, lower(owner), RecordPendingInput{
		ChainID: testChainID, TxHash: hash.Hex(), Action: types.ActionCreateCourse,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	res, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Created || !res.MarkerCleared {
		t.Fatalf("expected created course and cleared marker: %+v", res)
	}
	c := res.Course
	if c.Address != strings.ToLower(course.Hex()) || c.OwnerAddress != strings.ToLower(owner.Hex()) {
		t.Fatalf("addresses not lower-cased on-chain values: %s %s", c.Address, c.OwnerAddress)
	}
	if c.Name != "Solidity 101" || c.Symbol != "S101" || c.MaxSupply != "500" {
		t.Fatalf("unexpected course fields: %+v", c)
	}
	if c.KarmaAddress != lower(h.karma) || c.MagisterBaseKarma != 100 || c.DiscipulusBaseKarma != 10 {
		t.Fatalf("karma fields not mirrored: %+v", c)
	}
	if c.CreationTxHash != strings.ToLower(hash.Hex()) {
		t.Fatalf("creation tx hash: %s", c.CreationTxHash)
	}

	markers, err := h.pending.List(h.ctx, owner.Hex())
	if err != nil || len(markers) != 0 {
		t.Fatalf("marker should be consumed: err=%v len=%d", err, len(markers))
	}
}

func TestCourseReconcileReplayKeepsSingleRow(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)
	_, hash := h.deployCourse(owner)

	if _, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex()); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	doc := validMetadata()
	doc["name"] = "Renamed"
	h.setMetadata(http.StatusOK, doc)

	res, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if res.Created || res.Course.Name != "Solidity 101" {
		t.Fatalf("replay must return the stored row: %+v", res)
	}
	rows, err := h.courseRepo.ListByOwner(dbctx.Context{Ctx: h.ctx}, lower(owner))
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one course row, err=%v len=%d", err, len(rows))
	}
}

func TestCourseReconcileFallsBackToFirstLogEmitter(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)
	course := randomAddress(t)
	h.installCourse(course, owner)
	hash := h.chain.AddReceipt(1, chaintest.TransferLog(course, common.Address{}, owner, 0))

	res, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Course.Address != lower(course) {
		t.Fatalf("course address from first log: got %s want %s", res.Course.Address, lower(course))
	}
}

func TestCourseReconcileInvalidMetadataKeepsMarker(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)
	_, hash := h.deployCourse(owner)
	if _, err := h.pending.Record(h.ctx, owner.Hex(), RecordPendingInput{
		ChainID: testChainID, TxHash: hash.Hex(), Action: types.ActionCreateCourse,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	doc := validMetadata()
	delete(doc, "website")
	h.setMetadata(http.StatusOK, doc)

	_, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	requireAPIError(t, err, http.StatusBadRequest, "invalid_metadata")
	if !strings.Contains(err.Error(), "website") {
		t.Fatalf("error should name the missing field: %v", err)
	}

	h.setMetadata(http.StatusNotFound, nil)
	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	requireAPIError(t, err, http.StatusBadRequest, "invalid_metadata")

	markers, _ := h.pending.List(h.ctx, owner.Hex())
	if len(markers) != 1 {
		t.Fatalf("failed reconcile must keep the marker, got %d", len(markers))
	}
}

func TestCourseReconcileRejectsBadTransactions(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)

	failed := h.chain.AddReceipt(0, chaintest.CourseCreatedLog(h.factory, randomAddress(t), owner, h.karma))
	_, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, failed.Hex())
	requireAPIError(t, err, http.StatusUnprocessableEntity, "tx_failed")

	empty := h.chain.AddReceipt(1)
	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, empty.Hex())
	requireAPIError(t, err, http.StatusUnprocessableEntity, "no_logs")

	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, common.HexToHash("0xabc").Hex())
	requireAPIError(t, err, http.StatusNotFound, "tx_not_found")

	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), 1, failed.Hex())
	requireAPIError(t, err, http.StatusBadRequest, "unknown_chain")

	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, "0x1234")
	requireAPIError(t, err, http.StatusBadRequest, "invalid_tx_hash")
}

func TestCourseReconcileRefusesConcurrentRun(t *testing.T) {
	h := newHarness(t)
	owner := randomAddress(t)
	_, hash := h.deployCourse(owner)

	release, err := lockTx(h.ctx, h.locker, testChainID, hash, reconcileLockTTL)
	if err != nil {
		t.Fatalf("lockTx: %v", err)
	}
	_, err = h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex())
	requireAPIError(t, err, http.StatusConflict, CodeReconcileInProgress)

	release()
	if _, err := h.courseRec.Reconcile(h.ctx, owner.Hex(), testChainID, hash.Hex()); err != nil {
		t.Fatalf("Reconcile after release: %v", err)
	}
}
