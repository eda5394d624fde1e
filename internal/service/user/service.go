package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/security"
)

type Service struct {
	repo      repository.UserRepository
	tokenRepo repository.TokenRepository
	hasher    *security.Hasher
	auditor   *audit.Service
}

func NewService(
	repo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	hasher *security.Hasher,
	auditor *audit.Service,
) *Service {
	return &Service{
		repo:      repo,
		tokenRepo: tokenRepo,
		hasher:    hasher,
		auditor:   auditor,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest, actorID uuid.UUID) (*model.User, error) {
	if existing, _ := s.repo.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.NewConflict("user email", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error(), err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         model.UserRole(req.Role),
		Department:   req.Department,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityUser, user.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"email": user.Email,
			"role":  user.Role,
		},
	})

	return user, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

// Update changes profile fields, role, password, and the active flag.
// Deactivation revokes every outstanding refresh token so the account
// loses access at the next token expiry at the latest.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest, actorID uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperrors.NewBadRequest(err.Error(), err)
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		user.Role = model.UserRole(*req.Role)
	}
	if req.Department != nil {
		user.Department = *req.Department
	}
	deactivated := false
	if req.IsActive != nil {
		deactivated = user.IsActive && !*req.IsActive
		user.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if deactivated {
		if err := s.tokenRepo.RevokeAllForUser(ctx, user.ID); err != nil {
			log.Warn().Err(err).Str("email", user.Email).Msg("failed to revoke refresh tokens")
		}
	}

	// The raw request is never logged here, it may carry a new password.
	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityUser, user.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"email":            user.Email,
			"role":             user.Role,
			"is_active":        user.IsActive,
			"password_changed": req.Password != nil,
		},
	})

	return user, nil
}

// Delete soft-deletes a user and revokes their refresh tokens.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := s.tokenRepo.RevokeAllForUser(ctx, id); err != nil {
		log.Warn().Err(err).Str("user_id", id.String()).Msg("failed to revoke refresh tokens")
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, model.AuditEntityUser, id, nil)
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	return s.repo.List(ctx, filters)
}
