package courses

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type UserCredentialRepo interface {
	// CreateIgnoreDuplicates inserts rows, skipping tokens already mirrored.
	CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.UserCredential) (int64, error)
	DeleteByTokens(dbc dbctx.Context, keys []types.TokenKey) (int64, error)
	GetByToken(dbc dbctx.Context, key types.TokenKey) (*types.UserCredential, error)
	// ListByCourse filters by credential type when credType is non-empty.
	ListByCourse(dbc dbctx.Context, key types.CourseKey, credType string) ([]*types.UserCredential, error)
	ListByUser(dbc dbctx.Context, user string) ([]*types.UserCredential, error)
}

type userCredentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserCredentialRepo(db *gorm.DB, baseLog *logger.Logger) UserCredentialRepo {
	return &userCredentialRepo{db: db, log: baseLog.With("repo", "UserCredentialRepo")}
}

func (r *userCredentialRepo) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.UserCredential) (int64, error) {
	transaction := dbc.DB(r.db)
	if len(rows) == 0 {
		return 0, nil
	}
	for _, row := range rows {
		row.CourseAddress = normalize(row.CourseAddress)
		row.UserAddress = normalize(row.UserAddress)
	}
	res := transaction.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "course_address"}, {Name: "chain_id"}, {Name: "user_address"}, {Name: "token_id"},
		},
		DoNothing: true,
	}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *userCredentialRepo) DeleteByTokens(dbc dbctx.Context, keys []types.TokenKey) (int64, error) {
	transaction := dbc.DB(r.db)
	var total int64
	for _, k := range keys {
		res := transaction.Where("course_address = ? AND chain_id = ? AND user_address = ? AND token_id = ?",
			normalize(k.CourseAddress), k.ChainID, normalize(k.UserAddress), strings.TrimSpace(k.TokenID)).
			Delete(&types.UserCredential{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *userCredentialRepo) GetByToken(dbc dbctx.Context, key types.TokenKey) (*types.UserCredential, error) {
	transaction := dbc.DB(r.db)
	var out types.UserCredential
	err := transaction.Where("course_address = ? AND chain_id = ? AND user_address = ? AND token_id = ?",
		normalize(key.CourseAddress), key.ChainID, normalize(key.UserAddress), strings.TrimSpace(key.TokenID)).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userCredentialRepo) ListByCourse(dbc dbctx.Context, key types.CourseKey, credType string) ([]*types.UserCredential, error) {
	transaction := dbc.DB(r.db)
	q := transaction.Where("course_address = ? AND chain_id = ?", normalize(key.Address), key.ChainID)
	if credType != "" {
		q = q.Where("credential_type = ?", credType)
	}
	var results []*types.UserCredential
	if err := q.Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userCredentialRepo) ListByUser(dbc dbctx.Context, user string) ([]*types.UserCredential, error) {
	transaction := dbc.DB(r.db)
	var results []*types.UserCredential
	if err := transaction.Where("user_address = ?", normalize(user)).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
