package courses

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type CourseListFilter struct {
	ChainID int64
	Limit   int
	Offset  int
}

// CourseMetadataUpdate carries the off-chain fields an owner may edit. Nil
// fields are left unchanged.
type CourseMetadataUpdate struct {
	Name                *string
	Description         *string
	ImageURL            *string
	AccessURL           *string
	Website             *string
	SnapshotSpace       *string
	MagisterBaseKarma   *int64
	DiscipulusBaseKarma *int64
	Attributes          datatypes.JSON
}

func (u CourseMetadataUpdate) columns() map[string]interface{} {
	m := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			m[col] = strings.TrimSpace(*v)
		}
	}
	set("name", u.Name)
	set("description", u.Description)
	set("image_url", u.ImageURL)
	set("access_url", u.AccessURL)
	set("website", u.Website)
	set("snapshot_space", u.SnapshotSpace)
	if u.MagisterBaseKarma != nil {
		m["magister_base_karma"] = *u.MagisterBaseKarma
	}
	if u.DiscipulusBaseKarma != nil {
		m["discipulus_base_karma"] = *u.DiscipulusBaseKarma
	}
	if u.Attributes != nil {
		m["attributes"] = u.Attributes
	}
	return m
}

type CourseRepo interface {
	// Create inserts the course unless (address, chain_id) exists. inserted
	// reports whether a row was written.
	Create(dbc dbctx.Context, course *types.Course) (inserted bool, err error)
	GetByAddress(dbc dbctx.Context, key types.CourseKey) (*types.Course, error)
	ListByOwner(dbc dbctx.Context, owner string) ([]*types.Course, error)
	List(dbc dbctx.Context, filter CourseListFilter) ([]*types.Course, error)
	UpdateMetadata(dbc dbctx.Context, key types.CourseKey, update CourseMetadataUpdate) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(dbc dbctx.Context, course *types.Course) (bool, error) {
	if course == nil || course.Address == "" || course.ChainID == 0 {
		return false, fmt.Errorf("invalid course")
	}
	transaction := dbc.DB(r.db)
	course.Address = normalize(course.Address)
	course.OwnerAddress = normalize(course.OwnerAddress)
	res := transaction.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}, {Name: "chain_id"}},
		DoNothing: true,
	}).Create(course)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *courseRepo) GetByAddress(dbc dbctx.Context, key types.CourseKey) (*types.Course, error) {
	transaction := dbc.DB(r.db)
	var out types.Course
	err := transaction.Where("address = ? AND chain_id = ?", normalize(key.Address), key.ChainID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *courseRepo) ListByOwner(dbc dbctx.Context, owner string) ([]*types.Course, error) {
	transaction := dbc.DB(r.db)
	var results []*types.Course
	if strings.TrimSpace(owner) == "" {
		return results, nil
	}
	if err := transaction.Where("owner_address = ?", normalize(owner)).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) List(dbc dbctx.Context, filter CourseListFilter) ([]*types.Course, error) {
	transaction := dbc.DB(r.db)
	q := transaction.Model(&types.Course{})
	if filter.ChainID != 0 {
		q = q.Where("chain_id = ?", filter.ChainID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var results []*types.Course
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) UpdateMetadata(dbc dbctx.Context, key types.CourseKey, update CourseMetadataUpdate) (*types.Course, error) {
	transaction := dbc.DB(r.db)
	cols := update.columns()
	if len(cols) > 0 {
		res := transaction.Model(&types.Course{}).
			Where("address = ? AND chain_id = ?", normalize(key.Address), key.ChainID).
			Updates(cols)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}
	return r.GetByAddress(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, key)
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
