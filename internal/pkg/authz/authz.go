// Package authz keeps the role of a request's user fresh without reading the
// database on every privileged call.
package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

// ErrUnauthorized is returned when the acting user lacks the required role.
var ErrUnauthorized = errors.New("unauthorized")

const DefaultRefreshInterval = 30 * time.Second

type Authorizer struct {
	users  repository.UserRepository
	maxAge time.Duration
	now    func() time.Time
}

func NewAuthorizer(users repository.UserRepository, maxAge time.Duration) *Authorizer {
	if maxAge <= 0 {
		maxAge = DefaultRefreshInterval
	}
	return &Authorizer{users: users, maxAge: maxAge, now: time.Now}
}

// Refresh re-reads the role when the context is older than the refresh
// interval and returns the context unchanged otherwise. A user that no longer
// exists yields ErrUnauthorized.
func (a *Authorizer) Refresh(uc usercontext.UserContext) (usercontext.UserContext, error) {
	if !uc.IsLoggedIn || uc.UserID == 0 {
		return uc, nil
	}
	now := a.now()
	if !uc.Stale(now, a.maxAge) {
		return uc, nil
	}

	user, err := a.users.GetByID(uc.UserID)
	if err != nil {
		return usercontext.UserContext{}, fmt.Errorf("%w: reload user %d: %v", ErrUnauthorized, uc.UserID, err)
	}
	uc.Role = user.Role
	uc.Name = user.Name
	uc.Email = user.Email
	uc.RefreshedAt = now
	return uc, nil
}

// RequireAdmin returns the refreshed context if it carries the admin role.
func (a *Authorizer) RequireAdmin(uc usercontext.UserContext) (usercontext.UserContext, error) {
	uc, err := a.Refresh(uc)
	if err != nil {
		return uc, err
	}
	if !uc.IsLoggedIn || uc.Role != models.ROLE_ADMIN {
		return uc, ErrUnauthorized
	}
	return uc, nil
}

// FromUser builds a fresh context for a user that was just loaded.
func (a *Authorizer) FromUser(u *models.User) usercontext.UserContext {
	return usercontext.UserContext{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		IsLoggedIn:  true,
		RefreshedAt: a.now(),
	}
}

func (a *Authorizer) MaxAge() time.Duration {
	return a.maxAge
}
