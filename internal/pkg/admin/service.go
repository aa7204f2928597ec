// Package admin holds the privileged operations of the admin dashboard.
// Every call takes the acting user's authorization context explicitly.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/statistics"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

var validate = validator.New()

type Service struct {
	auth  *authz.Authorizer
	repos *repository.Repositories
	stats *statistics.Collector
}

// NewService builds the service. Without a collector the stats are computed
// on every call.
func NewService(auth *authz.Authorizer, repos *repository.Repositories, stats *statistics.Collector) *Service {
	if stats == nil {
		stats = statistics.NewCollector(repos, nil, nil, 0)
	}
	return &Service{auth: auth, repos: repos, stats: stats}
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(actor usercontext.UserContext, offset, limit int) ([]models.User, int64, error) {
	if _, err := s.auth.RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	users, err := s.repos.User.List(offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repos.User.Count()
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListAllLinks returns every account link with its owner.
func (s *Service) ListAllLinks(actor usercontext.UserContext) ([]models.AccountLink, error) {
	if _, err := s.auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.AccountLink.ListAllWithUsers()
}

// SetRole changes the role of targetID. An admin may demote themselves.
func (s *Service) SetRole(ctx context.Context, actor usercontext.UserContext, targetID uint, role string) (*models.User, error) {
	actor, err := s.auth.RequireAdmin(actor)
	if err != nil {
		return nil, err
	}
	if err := validate.Var(role, "required,oneof=user admin"); err != nil {
		return nil, fmt.Errorf("invalid role %q: %w", role, err)
	}

	user, err := s.repos.User.UpdateRole(targetID, role)
	if err != nil {
		return nil, err
	}
	// the admin count on the dashboard is cached
	s.stats.Invalidate(ctx)

	if targetID == actor.UserID && role != models.ROLE_ADMIN {
		log.Warnf("[Admin] user=%d removed their own admin role", actor.UserID)
	} else {
		log.Infof("[Admin] user=%d set role of user=%d to %s", actor.UserID, targetID, role)
	}
	return user, nil
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context, actor usercontext.UserContext) (*models.DashboardStats, error) {
	if _, err := s.auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.stats.Dashboard(ctx)
}
