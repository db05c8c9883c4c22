package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/data/repos"
	"github.com/yungbote/dae-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain/chaintest"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/platform/metadata"
	"github.com/yungbote/dae-backend/internal/platform/redisx"
)

const testChainID int64 = 31337

// harness wires every service against an in-memory database, an in-process
// chain and a local metadata server.
type harness struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	log *logger.Logger

	chain   *chaintest.Chain
	factory common.Address
	karma   common.Address

	metaMu     sync.Mutex
	metaDoc    map[string]interface{}
	metaStatus int
	meta       *httptest.Server

	uriMu     sync.Mutex
	tokenURIs map[common.Address]map[int64]string

	courseRepo  repos.CourseRepo
	credRepo    repos.CredentialRepo
	ucRepo      repos.UserCredentialRepo
	pendingRepo repos.PendingTransactionRepo
	locker      redisx.Locker

	roles       RoleService
	courses     CourseService
	credentials CredentialService
	pending     PendingService
	courseRec   CourseReconciler
	transferRec TransferReconciler
	burnRec     BurnReconciler
	resync      ResyncService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		ctx:        context.Background(),
		db:         testutil.DB(t),
		log:        testutil.Logger(t),
		chain:      chaintest.New(testChainID),
		factory:    randomAddress(t),
		karma:      randomAddress(t),
		metaStatus: http.StatusOK,
		metaDoc:    validMetadata(),
		tokenURIs:  map[common.Address]map[int64]string{},
	}
	h.meta = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metaMu.Lock()
		status, doc := h.metaStatus, h.metaDoc
		h.metaMu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(h.meta.Close)

	h.courseRepo = repos.NewCourseRepo(h.db, h.log)
	h.credRepo = repos.NewCredentialRepo(h.db, h.log)
	h.ucRepo = repos.NewUserCredentialRepo(h.db, h.log)
	h.pendingRepo = repos.NewPendingTransactionRepo(h.db, h.log)
	h.locker = redisx.NewMemoryLocker(uuid.NewString)

	base := aggregates.BaseDeps{DB: h.db, Log: h.log}
	courseAgg := aggregates.NewCourseAggregate(aggregates.CourseAggregateDeps{Base: base, Courses: h.courseRepo, Pending: h.pendingRepo})
	enrollAgg := aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{Base: base, UserCredentials: h.ucRepo, Pending: h.pendingRepo})
	fetcher := metadata.NewFetcher(h.log, metadata.Config{
		Gateway:  h.meta.URL,
		Timeout:  2 * time.Second,
		Retries:  1,
		RetryMin: time.Millisecond,
		RetryMax: 2 * time.Millisecond,
	})

	h.roles = NewRoleService(h.log, h.chain)
	h.courses = NewCourseService(h.db, h.log, h.courseRepo, h.ucRepo, h.chain)
	h.credentials = NewCredentialService(h.db, h.log, h.courseRepo, h.credRepo, h.roles)
	h.pending = NewPendingService(h.db, h.log, h.pendingRepo)
	h.courseRec = NewCourseReconciler(h.log, h.chain, fetcher, courseAgg, h.locker)
	h.transferRec = NewTransferReconciler(h.log, h.chain, h.roles, h.credRepo, enrollAgg, h.locker)
	h.burnRec = NewBurnReconciler(h.log, h.chain, h.roles, enrollAgg, h.locker)
	h.resync = NewResyncService(h.log, h.pendingRepo, h.courseRec, h.transferRec, h.burnRec, 2)
	return h
}

func validMetadata() map[string]interface{} {
	return map[string]interface{}{
		"name":                  "Solidity 101",
		"description":           "Intro course",
		"access_url":            "https://learn.example/solidity",
		"image":                 "https://img.example/solidity.png",
		"website":               "https://example.org",
		"snapshot_space":        "dae.eth",
		"magister_base_karma":   100,
		"discipulus_base_karma": 10,
	}
}

func (h *harness) setMetadata(status int, doc map[string]interface{}) {
	h.metaMu.Lock()
	defer h.metaMu.Unlock()
	h.metaStatus, h.metaDoc = status, doc
}

// deployCourse registers a course contract on the fake chain and mines its
// factory deployment.
func (h *harness) deployCourse(owner common.Address) (common.Address, common.Hash) {
	h.t.Helper()
	course := randomAddress(h.t)
	h.installCourse(course, owner)
	hash := h.chain.AddReceipt(1, chaintest.CourseCreatedLog(h.factory, course, owner, h.karma))
	return course, hash
}

func (h *harness) installCourse(course, owner common.Address) {
	h.chain.Return(course, contracts.CredentialABI, "owner", owner)
	h.chain.Return(course, contracts.CredentialABI, "symbol", "S101")
	h.chain.Return(course, contracts.CredentialABI, "maxSupply", big.NewInt(500))
	h.chain.Return(course, contracts.CredentialABI, "baseURI", h.meta.URL+"/ipfs/bafycourse/metadata.json")
	h.chain.Return(course, contracts.CredentialABI, "karmaAccessControl", h.karma)
	h.chain.Return(course, contracts.CredentialABI, "hasRole", false)
	h.chain.Handle(course, contracts.CredentialABI, "tokenURI", func(args []interface{}) ([]interface{}, error) {
		id, _ := args[0].(*big.Int)
		h.uriMu.Lock()
		defer h.uriMu.Unlock()
		uri, ok := h.tokenURIs[course][id.Int64()]
		if !ok {
			return nil, chaintest.ErrReverted
		}
		return []interface{}{uri}, nil
	})
}

func (h *harness) setTokenURI(course common.Address, tokenID int64, uri string) {
	h.uriMu.Lock()
	defer h.uriMu.Unlock()
	if h.tokenURIs[course] == nil {
		h.tokenURIs[course] = map[int64]string{}
	}
	h.tokenURIs[course][tokenID] = uri
}

// mirroredCourse seeds a course row and installs its contract on the fake
// chain.
func (h *harness) mirroredCourse(owner common.Address) (common.Address, *types.Course) {
	h.t.Helper()
	row := testutil.SeedCourse(h.t, h.ctx, h.db, testChainID, lower(owner))
	course := common.HexToAddress(row.Address)
	h.installCourse(course, owner)
	return course, row
}

func randomAddress(t *testing.T) common.Address {
	return common.HexToAddress(testutil.Address(t))
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s, got nil", status, code)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected apierr, got %T: %v", err, err)
	}
	if ae.Status != status || (code != "" && ae.Code != code) {
		t.Fatalf("expected %d %s, got %d %s (%v)", status, code, ae.Status, ae.Code, ae.Err)
	}
}
