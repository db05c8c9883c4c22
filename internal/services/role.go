package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

// CourseAdminRoles are the roles allowed to issue, burn and define credentials.
var CourseAdminRoles = []contracts.Role{contracts.DefaultAdminRole, contracts.MagisterRole}

type RoleService interface {
	// HasAnyRole reads hasRole for each role concurrently and reports whether
	// account holds at least one of them on the course contract.
	HasAnyRole(ctx context.Context, chainID int64, course, account common.Address, roles ...contracts.Role) (bool, error)
	// RequireCourseAdmin fails with 403 unless account is admin or Magister.
	RequireCourseAdmin(ctx context.Context, chainID int64, course, account common.Address) error
}

type roleService struct {
	log    *logger.Logger
	chains chain.Clients
}

func NewRoleService(log *logger.Logger, chains chain.Clients) RoleService {
	return &roleService{log: log.With("service", "RoleService"), chains: chains}
}

func (s *roleService) HasAnyRole(ctx context.Context, chainID int64, course, account common.Address, roles ...contracts.Role) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	client, _, err := s.chains.Client(ctx, chainID)
	if err != nil {
		return false, chainError(err)
	}
	cred := contracts.NewCredential(course, client)

	held := make([]bool, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			ok, err := cred.HasRole(gctx, role, account)
			if err != nil {
				return fmt.Errorf("hasRole %s: %w", role.Hex(), err)
			}
			held[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, chainError(err)
	}
	for _, ok := range held {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *roleService) RequireCourseAdmin(ctx context.Context, chainID int64, course, account common.Address) error {
	ok, err := s.HasAnyRole(ctx, chainID, course, account, CourseAdminRoles...)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("role check denied", "course", lower(course), "chain_id", chainID, "user_address", lower(account))
		return apierr.Forbidden("caller is not a course admin or magister")
	}
	return nil
}
