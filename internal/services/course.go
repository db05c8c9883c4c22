package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/repos"
	types "github.com/yungbote/dae-backend/internal/domain"
	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/dbctx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type KarmaBalance struct {
	Course       string `json:"course_address"`
	ChainID      int64  `json:"chain_id"`
	User         string `json:"user_address"`
	KarmaAddress string `json:"karma_address"`
	Karma        string `json:"karma"`
}

type CourseService interface {
	List(ctx context.Context, filter repos.CourseListFilter) ([]*types.Course, error)
	ListMine(ctx context.Context, caller string) ([]*types.Course, error)
	Get(ctx context.Context, chainID int64, address string) (*types.Course, error)
	UpdateMetadata(ctx context.Context, caller string, chainID int64, address string, update repos.CourseMetadataUpdate) (*types.Course, error)
	ListMembers(ctx context.Context, chainID int64, address, credentialType string) ([]*types.UserCredential, error)
	Karma(ctx context.Context, chainID int64, address, user string) (*KarmaBalance, error)
}

type courseService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.CourseRepo
	ucs    repos.UserCredentialRepo
	chains chain.Clients
}

func NewCourseService(db *gorm.DB, log *logger.Logger, repo repos.CourseRepo, ucs repos.UserCredentialRepo, chains chain.Clients) CourseService {
	return &courseService{
		db:     db,
		log:    log.With("service", "CourseService"),
		repo:   repo,
		ucs:    ucs,
		chains: chains,
	}
}

func (s *courseService) List(ctx context.Context, filter repos.CourseListFilter) ([]*types.Course, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(dbctx.Context{Ctx: ctx}, filter)
}

func (s *courseService) ListMine(ctx context.Context, caller string) ([]*types.Course, error) {
	owner, err := parseAddress("address", caller)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(dbctx.Context{Ctx: ctx}, lower(owner))
}

func (s *courseService) Get(ctx context.Context, chainID int64, address string) (*types.Course, error) {
	key, err := courseKey(chainID, address)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, key)
}

func (s *courseService) get(ctx context.Context, key types.CourseKey) (*types.Course, error) {
	course, err := s.repo.GetByAddress(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", "course not found")
	}
	return course, nil
}

func (s *courseService) UpdateMetadata(ctx context.Context, caller string, chainID int64, address string, update repos.CourseMetadataUpdate) (*types.Course, error) {
	key, err := courseKey(chainID, address)
	if err != nil {
		return nil, err
	}
	if update.MagisterBaseKarma != nil && *update.MagisterBaseKarma < 0 {
		return nil, apierr.BadRequest("invalid_base_karma", "magister_base_karma must be >= 0")
	}
	if update.DiscipulusBaseKarma != nil && *update.DiscipulusBaseKarma < 0 {
		return nil, apierr.BadRequest("invalid_base_karma", "discipulus_base_karma must be >= 0")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apierr.BadRequest("invalid_name", "name cannot be empty")
	}

	var updated *types.Course
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		course, err := s.repo.GetByAddress(dbc, key)
		if err != nil {
			return err
		}
		if course == nil {
			return apierr.NotFound("course_not_found", "course not found")
		}
		if !strings.EqualFold(course.OwnerAddress, caller) {
			return apierr.Forbidden("only the course owner can edit metadata")
		}
		updated, err = s.repo.UpdateMetadata(dbc, key, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.For(ctx).Info("course metadata updated", "course", key.Address, "chain_id", key.ChainID)
	return updated, nil
}

func (s *courseService) ListMembers(ctx context.Context, chainID int64, address, credentialType string) ([]*types.UserCredential, error) {
	if credentialType != "" && !contracts.ValidTag(credentialType) {
		return nil, apierr.BadRequest("invalid_credential_type", "unknown credential type")
	}
	key, err := courseKey(chainID, address)
	if err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, key); err != nil {
		return nil, err
	}
	return s.ucs.ListByCourse(dbctx.Context{Ctx: ctx}, key, credentialType)
}

// Karma reads the participant's score from the course's karma contract. The
// address mirrored on the course row is preferred; otherwise the course
// contract is asked for it.
func (s *courseService) Karma(ctx context.Context, chainID int64, address, user string) (*KarmaBalance, error) {
	key, err := courseKey(chainID, address)
	if err != nil {
		return nil, err
	}
	account, err := parseAddress("user", user)
	if err != nil {
		return nil, err
	}
	course, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	client, _, err := s.chains.Client(ctx, chainID)
	if err != nil {
		return nil, chainError(err)
	}

	karmaAddr := common.Address{}
	if common.IsHexAddress(course.KarmaAddress) {
		karmaAddr = common.HexToAddress(course.KarmaAddress)
	}
	if karmaAddr == (common.Address{}) {
		karmaAddr, err = contracts.NewCredential(common.HexToAddress(key.Address), client).KarmaAccessControl(ctx)
		if err != nil && !contracts.IsRevert(err) {
			return nil, chainError(err)
		}
	}
	if karmaAddr == (common.Address{}) {
		return nil, apierr.NotFound("karma_not_configured", "course has no karma contract")
	}

	score, err := contracts.NewKarma(karmaAddr, client).KarmaOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("read karma: %w", chainError(err))
	}
	return &KarmaBalance{
		Course:       key.Address,
		ChainID:      key.ChainID,
		User:         lower(account),
		KarmaAddress: lower(karmaAddr),
		Karma:        score.String(),
	}, nil
}

func courseKey(chainID int64, address string) (types.CourseKey, error) {
	if err := requireChainID(chainID); err != nil {
		return types.CourseKey{}, err
	}
	addr, err := parseAddress("course", address)
	if err != nil {
		return types.CourseKey{}, err
	}
	return types.CourseKey{Address: lower(addr), ChainID: chainID}, nil
}
