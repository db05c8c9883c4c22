package courses

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type CredentialRepo interface {
	// Create fails with a unique violation when the content id already exists
	// for the course.
	Create(dbc dbctx.Context, cred *types.Credential) error
	GetByCID(dbc dbctx.Context, key types.CourseKey, cid string) (*types.Credential, error)
	GetByCIDs(dbc dbctx.Context, key types.CourseKey, cids []string) (map[string]*types.Credential, error)
	ListByCourse(dbc dbctx.Context, key types.CourseKey) ([]*types.Credential, error)
}

type credentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	return &credentialRepo{db: db, log: baseLog.With("repo", "CredentialRepo")}
}

func (r *credentialRepo) Create(dbc dbctx.Context, cred *types.Credential) error {
	if cred == nil || cred.CourseAddress == "" || cred.ChainID == 0 || strings.TrimSpace(cred.IPFSCID) == "" {
		return fmt.Errorf("invalid credential")
	}
	transaction := dbc.DB(r.db)
	cred.CourseAddress = normalize(cred.CourseAddress)
	cred.CreatedBy = normalize(cred.CreatedBy)
	cred.IPFSCID = strings.TrimSpace(cred.IPFSCID)
	return transaction.Create(cred).Error
}

func (r *credentialRepo) GetByCID(dbc dbctx.Context, key types.CourseKey, cid string) (*types.Credential, error) {
	transaction := dbc.DB(r.db)
	var out types.Credential
	err := transaction.Where("course_address = ? AND chain_id = ? AND ipfs_cid = ?", normalize(key.Address), key.ChainID, strings.TrimSpace(cid)).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *credentialRepo) GetByCIDs(dbc dbctx.Context, key types.CourseKey, cids []string) (map[string]*types.Credential, error) {
	transaction := dbc.DB(r.db)
	out := map[string]*types.Credential{}
	if len(cids) == 0 {
		return out, nil
	}
	var rows []*types.Credential
	if err := transaction.Where("course_address = ? AND chain_id = ? AND ipfs_cid IN ?", normalize(key.Address), key.ChainID, cids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.IPFSCID] = row
	}
	return out, nil
}

func (r *credentialRepo) ListByCourse(dbc dbctx.Context, key types.CourseKey) ([]*types.Credential, error) {
	transaction := dbc.DB(r.db)
	var results []*types.Credential
	if err := transaction.Where("course_address = ? AND chain_id = ?", normalize(key.Address), key.ChainID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
