package services

import (
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/chain/chaintest"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
)

type transferFixture struct {
	*harness
	owner  common.Address
	course common.Address
	row    *types.Course
}

func newTransferFixture(t *testing.T) *transferFixture {
	h := newHarness(t)
	owner := randomAddress(t)
	course, row := h.mirroredCourse(owner)
	h.chain.GrantRole(course, contracts.MagisterRole, owner)
	testutil.SeedCredential(t, h.ctx, h.db, row, "bafystudent", contracts.TagStudent)
	return &transferFixture{harness: h, owner: owner, course: course, row: row}
}

func (f *transferFixture) key() types.CourseKey {
	return types.CourseKey{Address: f.row.Address, ChainID: testChainID}
}

func TestTransferReconcileOnlyEnrollsRequestedAddresses(t *testing.T) {
	f := newTransferFixture(t)
	a, b := randomAddress(t), randomAddress(t)
	f.setTokenURI(f.course, 1, "ipfs://bafystudent/1.json")
	f.setTokenURI(f.course, 2, "ipfs://bafystudent/2.json")
	hash := f.chain.AddReceipt(1,
		chaintest.IssuedLog(f.course, a, 1, contracts.DiscipulusRole),
		chaintest.IssuedLog(f.course, b, 2, contracts.DiscipulusRole),
	)

	res, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{
		ChainID:     testChainID,
		TxHash:      hash.Hex(),
		Enrollments: []types.Enrollment{{Address: a.Hex(), Email: "a@example.org", Discord: "a#1"}},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Inserted != 1 || len(res.Enrolled) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	rows, err := f.ucRepo.ListByCourse(dbctx.Context{Ctx: f.ctx}, f.key(), "")
	if err != nil {
		t.Fatalf("ListByCourse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	got := rows[0]
	if got.UserAddress != lower(a) || got.TokenID != "1" || got.CredentialType != contracts.TagStudent {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.CredentialCID != "bafystudent" || got.Email != "a@example.org" || !got.Verified || got.TxHash != lowerHash(hash) {
		t.Fatalf("row metadata not recorded: %+v", got)
	}
}

func TestTransferReconcileSkipsUnknownCredentialsAndMissingEvents(t *testing.T) {
	f := newTransferFixture(t)
	known, unknown, absent := randomAddress(t), randomAddress(t), randomAddress(t)
	f.setTokenURI(f.course, 7, "https://gw.example/ipfs/bafystudent")
	f.setTokenURI(f.course, 8, "ipfs://bafyunknown")
	hash := f.chain.AddReceipt(1,
		chaintest.IssuedLog(f.course, known, 7, contracts.DiscipulusRole),
		chaintest.IssuedLog(f.course, unknown, 8, contracts.DiscipulusRole),
	)
	marker, err := f.pending.Record(f.ctx, f.owner.Hex(), RecordPendingInput{
		ChainID: testChainID,
		TxHash:  hash.Hex(),
		Action:  types.ActionTransferCredentials,
		Payload: []byte(`{"enrollments":[{"address":"` + known.Hex() + `"}]}`),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	res, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{
		ChainID:       testChainID,
		TxHash:        hash.Hex(),
		CourseAddress: f.course.Hex(),
		Enrollments: []types.Enrollment{
			{Address: known.Hex()}, {Address: unknown.Hex()}, {Address: absent.Hex()},
		},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Inserted != 1 || !res.MarkerCleared {
		t.Fatalf("unexpected result: %+v", res)
	}
	reasons := map[string]string{}
	for _, s := range res.Skipped {
		reasons[s.Address] = s.Reason
	}
	if reasons[lower(unknown)] != SkipUnknownCredential || reasons[lower(absent)] != SkipNoIssuedEvent || len(reasons) != 2 {
		t.Fatalf("unexpected skipped set: %+v", res.Skipped)
	}
	if p, _ := f.pendingRepo.GetByHash(dbctx.Context{Ctx: f.ctx}, marker.TxHash, lower(f.owner)); p != nil {
		t.Fatalf("marker should be cleared")
	}
}

func TestTransferReconcileReplayDoesNotDuplicate(t *testing.T) {
	f := newTransferFixture(t)
	a := randomAddress(t)
	f.setTokenURI(f.course, 3, "ipfs://bafystudent")
	hash := f.chain.AddReceipt(1, chaintest.IssuedLog(f.course, a, 3, contracts.DiscipulusRole))
	req := TransferRequest{ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: a.Hex()}}}

	first, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), req)
	if err != nil || first.Inserted != 1 {
		t.Fatalf("first Reconcile: res=%+v err=%v", first, err)
	}
	second, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), req)
	if err != nil || second.Inserted != 0 {
		t.Fatalf("replay Reconcile: res=%+v err=%v", second, err)
	}
	rows, _ := f.ucRepo.ListByUser(dbctx.Context{Ctx: f.ctx}, lower(a))
	if len(rows) != 1 {
		t.Fatalf("expected one row after replay, got %d", len(rows))
	}
}

func TestTransferReconcileRequiresCourseRole(t *testing.T) {
	f := newTransferFixture(t)
	a := randomAddress(t)
	outsider := randomAddress(t)
	f.setTokenURI(f.course, 1, "ipfs://bafystudent")
	hash := f.chain.AddReceipt(1, chaintest.IssuedLog(f.course, a, 1, contracts.DiscipulusRole))

	_, err := f.transferRec.Reconcile(f.ctx, outsider.Hex(), TransferRequest{
		ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: a.Hex()}},
	})
	requireAPIError(t, err, http.StatusForbidden, "forbidden")

	f.chain.GrantRole(f.course, contracts.DefaultAdminRole, outsider)
	if _, err := f.transferRec.Reconcile(f.ctx, outsider.Hex(), TransferRequest{
		ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: a.Hex()}},
	}); err != nil {
		t.Fatalf("admin should be allowed: %v", err)
	}
}

func TestTransferReconcileWithoutIssuedEventsConsumesMarker(t *testing.T) {
	f := newTransferFixture(t)
	a := randomAddress(t)
	hash := f.chain.AddReceipt(1, chaintest.TransferLog(f.course, common.Address{}, a, 9))
	marker, err := f.pending.Record(f.ctx, f.owner.Hex(), RecordPendingInput{
		ChainID: testChainID,
		TxHash:  hash.Hex(),
		Action:  types.ActionTransferCredentials,
		Payload: []byte(`{"enrollments":[{"address":"` + a.Hex() + `"}]}`),
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	_, err = f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{
		ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: a.Hex()}},
	})
	requireAPIError(t, err, http.StatusUnprocessableEntity, CodeNoIssuedEvents)
	if p, _ := f.pendingRepo.GetByHash(dbctx.Context{Ctx: f.ctx}, marker.TxHash, lower(f.owner)); p != nil {
		t.Fatalf("marker should be consumed")
	}
}

func TestTransferReconcileSkipsTokensBurnedSinceMint(t *testing.T) {
	f := newTransferFixture(t)
	a := randomAddress(t)
	hash := f.chain.AddReceipt(1, chaintest.IssuedLog(f.course, a, 4, contracts.MagisterRole))

	res, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{
		ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: a.Hex()}},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Inserted != 0 || len(res.Skipped) != 1 || res.Skipped[0].Reason != SkipTokenBurned {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTransferReconcileValidatesInput(t *testing.T) {
	f := newTransferFixture(t)
	hash := f.chain.AddReceipt(1)

	_, err := f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{ChainID: testChainID, TxHash: hash.Hex()})
	requireAPIError(t, err, http.StatusBadRequest, "missing_enrollments")

	_, err = f.transferRec.Reconcile(f.ctx, f.owner.Hex(), TransferRequest{
		ChainID: testChainID, TxHash: hash.Hex(), Enrollments: []types.Enrollment{{Address: "not-an-address"}},
	})
	requireAPIError(t, err, http.StatusBadRequest, "invalid_enrollment_address")
}

func TestCredentialTypeFallsBackToCredentialKind(t *testing.T) {
	custom := &types.Credential{Kind: contracts.TagAdmin}
	if got := credentialType(contracts.MagisterRole, custom); got != contracts.TagTeacher {
		t.Fatalf("role tag should win: %s", got)
	}
	if got := credentialType(common.HexToHash("0x01"), custom); got != contracts.TagAdmin {
		t.Fatalf("custom role should use credential kind: %s", got)
	}
	if got := credentialType(common.HexToHash("0x01"), nil); got != contracts.TagOther {
		t.Fatalf("unknown role without credential: %s", got)
	}
}
