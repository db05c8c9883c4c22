package transactions

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

const maxLastErrorLen = 1024

// MarkerKey identifies one user's marker for a transaction. An empty Action
// matches any action.
type MarkerKey struct {
	TxHash      string
	UserAddress string
	Action      types.PendingAction
}

func (k MarkerKey) normalized() (MarkerKey, error) {
	k.TxHash = NormalizeHash(k.TxHash)
	k.UserAddress = strings.ToLower(strings.TrimSpace(k.UserAddress))
	if k.TxHash == "" || k.UserAddress == "" {
		return k, fmt.Errorf("marker key needs tx hash and user address")
	}
	return k, nil
}

type PendingTransactionRepo interface {
	// Create fails with a unique violation when the user already recorded the hash.
	Create(dbc dbctx.Context, row *types.PendingTransaction) error
	GetByHash(dbc dbctx.Context, txHash, user string) (*types.PendingTransaction, error)
	ListByUser(dbc dbctx.Context, user string) ([]*types.PendingTransaction, error)
	DeleteMarker(dbc dbctx.Context, key MarkerKey) (int64, error)
	// RecordFailure bumps attempts and stores the latest failure text.
	RecordFailure(dbc dbctx.Context, key MarkerKey, reason string) error
}

type pendingTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPendingTransactionRepo(db *gorm.DB, baseLog *logger.Logger) PendingTransactionRepo {
	return &pendingTransactionRepo{db: db, log: baseLog.With("repo", "PendingTransactionRepo")}
}

func (r *pendingTransactionRepo) Create(dbc dbctx.Context, row *types.PendingTransaction) error {
	if row == nil || row.TxHash == "" || row.UserAddress == "" || !row.Action.Valid() {
		return fmt.Errorf("invalid pending transaction")
	}
	transaction := dbc.DB(r.db)
	row.TxHash = NormalizeHash(row.TxHash)
	row.UserAddress = strings.ToLower(strings.TrimSpace(row.UserAddress))
	return transaction.Create(row).Error
}

func (r *pendingTransactionRepo) GetByHash(dbc dbctx.Context, txHash, user string) (*types.PendingTransaction, error) {
	transaction := dbc.DB(r.db)
	var out types.PendingTransaction
	err := transaction.Where("tx_hash = ? AND user_address = ?", NormalizeHash(txHash), strings.ToLower(strings.TrimSpace(user))).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *pendingTransactionRepo) ListByUser(dbc dbctx.Context, user string) ([]*types.PendingTransaction, error) {
	transaction := dbc.DB(r.db)
	var results []*types.PendingTransaction
	if err := transaction.Where("user_address = ?", strings.ToLower(strings.TrimSpace(user))).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pendingTransactionRepo) DeleteMarker(dbc dbctx.Context, key MarkerKey) (int64, error) {
	key, err := key.normalized()
	if err != nil {
		return 0, err
	}
	transaction := dbc.DB(r.db)
	q := transaction.Where("tx_hash = ? AND user_address = ?", key.TxHash, key.UserAddress)
	if key.Action != "" {
		q = q.Where("action = ?", key.Action)
	}
	res := q.Delete(&types.PendingTransaction{})
	return res.RowsAffected, res.Error
}

func (r *pendingTransactionRepo) RecordFailure(dbc dbctx.Context, key MarkerKey, reason string) error {
	key, err := key.normalized()
	if err != nil {
		return err
	}
	transaction := dbc.DB(r.db)
	q := transaction.Model(&types.PendingTransaction{}).
		Where("tx_hash = ? AND user_address = ?", key.TxHash, key.UserAddress)
	if key.Action != "" {
		q = q.Where("action = ?", key.Action)
	}
	return q.Updates(map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": truncate(reason, maxLastErrorLen),
	}).Error
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func NormalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
