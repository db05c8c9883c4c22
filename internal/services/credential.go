package services

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type CreateCredentialInput struct {
	Name        string
	Description string
	ImageURL    string
	// IPFSCID accepts a bare cid or an ipfs:// / gateway URI.
	IPFSCID string
	Kind    string
}

type CredentialService interface {
	Create(ctx context.Context, caller string, chainID int64, course string, in CreateCredentialInput) (*types.Credential, error)
	List(ctx context.Context, chainID int64, course string) ([]*types.Credential, error)
}

type credentialService struct {
	db      *gorm.DB
	log     *logger.Logger
	courses repos.CourseRepo
	repo    repos.CredentialRepo
	roles   RoleService
}

func NewCredentialService(db *gorm.DB, log *logger.Logger, courses repos.CourseRepo, repo repos.CredentialRepo, roles RoleService) CredentialService {
	return &credentialService{
		db:      db,
		log:     log.With("service", "CredentialService"),
		courses: courses,
		repo:    repo,
		roles:   roles,
	}
}

func (s *credentialService) Create(ctx context.Context, caller string, chainID int64, course string, in CreateCredentialInput) (*types.Credential, error) {
	key, err := courseKey(chainID, course)
	if err != nil {
		return nil, err
	}
	callerAddr, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.BadRequest("missing_name", "name is required")
	}
	cid := contracts.CIDFromURI(in.IPFSCID)
	if cid == "" {
		return nil, apierr.BadRequest("invalid_ipfs_cid", "ipfs_cid must be a content id or ipfs URI")
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if kind == "" {
		kind = contracts.TagOther
	}
	if !contracts.ValidTag(kind) {
		return nil, apierr.BadRequest("invalid_kind", "kind must be teacher, student, admin or other")
	}

	row, err := s.courses.GetByAddress(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apierr.NotFound("course_not_found", "course not found")
	}
	if !strings.EqualFold(row.OwnerAddress, lower(callerAddr)) {
		if err := s.roles.RequireCourseAdmin(ctx, chainID, common.HexToAddress(key.Address), callerAddr); err != nil {
			return nil, err
		}
	}

	cred := &types.Credential{
		CourseAddress: key.Address,
		ChainID:       key.ChainID,
		IPFSCID:       cid,
		Name:          name,
		Description:   strings.TrimSpace(in.Description),
		ImageURL:      strings.TrimSpace(in.ImageURL),
		Kind:          kind,
		CreatedBy:     lower(callerAddr),
	}
	if err := s.repo.Create(dbctx.Context{Ctx: ctx}, cred); err != nil {
		if dataagg.IsUniqueViolation(err) {
			return nil, apierr.Conflict("credential_exists", "a credential with this content id already exists for the course")
		}
		return nil, err
	}
	s.log.For(ctx).Info("credential created", "course", key.Address, "chain_id", key.ChainID, "cid", cid)
	return cred, nil
}

func (s *credentialService) List(ctx context.Context, chainID int64, course string) ([]*types.Credential, error) {
	key, err := courseKey(chainID, course)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(dbctx.Context{Ctx: ctx}, key)
}
