// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/role"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
)

type Service struct {
	repo     Repository
	saSecret string
	logger   *slog.Logger
}

func NewService(repo Repository, saSecret string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		saSecret: saSecret,
		logger:   logger,
	}
}

func (s *Service) FindByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Provision(
	ctx context.Context,
	name, email string,
) (*auth.UserInfo, bool, error) {
	user, created, err := s.repo.InsertIfAbsent(ctx, User{
		Name:  name,
		Email: email,
		Role:  role.Default.String(),
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.InfoContext(ctx, "user provisioned", "email", email)
	}

	return toUserInfo(user), created, nil
}

func (s *Service) GetUser(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) ListUsers(ctx context.Context) ([]store.Entry[string, User], error) {
	return s.repo.List(ctx)
}

func (s *Service) ChangeRole(
	ctx context.Context,
	email, newRole string,
) (*User, error) {
	if !slices.Contains(role.Names(), newRole) {
		return nil, fmt.Errorf(
			"change role: invalid role %q: %w",
			newRole,
			core.ErrInvalidInput,
		)
	}

	user, err := s.repo.UpdateRole(ctx, email, newRole)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "role changed", "email", email, "role", newRole)

	return user, nil
}

// GenerateSuperadmin grants Superadmin to email when secret matches the
// configured bootstrap secret. An existing user under email is replaced.
func (s *Service) GenerateSuperadmin(
	ctx context.Context,
	email, secret string,
) (*User, error) {
	if !core.VerifySecret(secret, s.saSecret) {
		return nil, fmt.Errorf("generate superadmin: %w", core.ErrForbidden)
	}

	user := User{
		Name:  SuperadminName,
		Email: email,
		Role:  role.Superadmin.String(),
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WarnContext(ctx, "superadmin generated", "email", email)

	return &user, nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
