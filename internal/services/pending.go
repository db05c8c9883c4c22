package services

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type RecordPendingInput struct {
	ChainID int64
	TxHash  string
	Action  types.PendingAction
	Payload json.RawMessage
}

// PendingService manages the write-ahead markers a client records right
// after submitting an on-chain write.
type PendingService interface {
	Record(ctx context.Context, caller string, in RecordPendingInput) (*types.PendingTransaction, error)
	List(ctx context.Context, caller string) ([]*types.PendingTransaction, error)
	Void(ctx context.Context, caller, txHash string) error
}

type pendingService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.PendingTransactionRepo
}

func NewPendingService(db *gorm.DB, log *logger.Logger, repo repos.PendingTransactionRepo) PendingService {
	return &pendingService{db: db, log: log.With("service", "PendingService"), repo: repo}
}

func (s *pendingService) Record(ctx context.Context, caller string, in RecordPendingInput) (*types.PendingTransaction, error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	if err := requireChainID(in.ChainID); err != nil {
		return nil, err
	}
	hash, err := parseTxHash(in.TxHash)
	if err != nil {
		return nil, err
	}
	if !in.Action.Valid() {
		return nil, apierr.BadRequest("invalid_action", "action must be create_course, transfer_credentials or burn_credential")
	}
	payload, err := normalizePayload(in.Action, in.Payload)
	if err != nil {
		return nil, err
	}

	row := &types.PendingTransaction{
		TxHash:      lowerHash(hash),
		ChainID:     in.ChainID,
		UserAddress: lower(callerAddr),
		Action:      in.Action,
		Payload:     payload,
	}
	if err := s.repo.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		if dataagg.IsUniqueViolation(err) {
			return nil, apierr.Conflict("pending_exists", "you already recorded a pending marker for this transaction")
		}
		return nil, err
	}
	s.log.For(ctx).Info("pending transaction recorded", "tx_hash", row.TxHash, "action", row.Action, "chain_id", row.ChainID)
	return row, nil
}

func (s *pendingService) List(ctx context.Context, caller string) ([]*types.PendingTransaction, error) {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(dbctx.Context{Ctx: ctx}, lower(callerAddr))
}

// Void deletes the caller's own marker for txHash. Markers other users
// recorded for the same hash are invisible here.
func (s *pendingService) Void(ctx context.Context, caller, txHash string) error {
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return err
	}
	hash, err := parseTxHash(txHash)
	if err != nil {
		return err
	}
	n, err := s.repo.DeleteMarker(dbctx.Context{Ctx: ctx}, repos.MarkerKey{TxHash: lowerHash(hash), UserAddress: lower(callerAddr)})
	if err != nil {
		return err
	}
	if n == 0 {
		return apierr.NotFound("pending_not_found", "pending transaction not found")
	}
	s.log.For(ctx).Info("pending transaction voided", "tx_hash", lowerHash(hash))
	return nil
}

// normalizePayload validates the action-specific payload and re-encodes it
// with lower-cased addresses so resync sees the same shape every time.
func normalizePayload(action types.PendingAction, raw json.RawMessage) (datatypes.JSON, error) {
	empty := len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null"
	switch action {
	case types.ActionTransferCredentials:
		if empty {
			return nil, apierr.BadRequest("missing_enrollments", "transfer markers need enrollment records")
		}
		var p types.TransferPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apierr.BadRequest("invalid_payload", "payload is not a transfer payload")
		}
		enrollments, err := normalizeEnrollments(p.Enrollments)
		if err != nil {
			return nil, err
		}
		p.Enrollments = enrollments
		if p.CourseAddress != "" {
			addr, err := parseAddress("course", p.CourseAddress)
			if err != nil {
				return nil, err
			}
			p.CourseAddress = lower(addr)
		}
		return marshalPayload(p)
	case types.ActionBurnCredential:
		if empty {
			return nil, nil
		}
		var p types.BurnPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apierr.BadRequest("invalid_payload", "payload is not a burn payload")
		}
		if p.CourseAddress != "" {
			addr, err := parseAddress("course", p.CourseAddress)
			if err != nil {
				return nil, err
			}
			p.CourseAddress = lower(addr)
		}
		return marshalPayload(p)
	}
	return nil, nil
}

func normalizeEnrollments(in []types.Enrollment) ([]types.Enrollment, error) {
	if len(in) == 0 {
		return nil, apierr.BadRequest("missing_enrollments", "at least one enrollment record is required")
	}
	out := make([]types.Enrollment, 0, len(in))
	for _, e := range in {
		addr, err := parseAddress("enrollment_address", e.Address)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Enrollment{
			Address: lower(addr),
			Email:   strings.TrimSpace(e.Email),
			Discord: strings.TrimSpace(e.Discord),
		})
	}
	return out, nil
}

func marshalPayload(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
