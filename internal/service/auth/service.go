package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/pkg/auth"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/security"
)

type Service struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	tokenMgr *auth.TokenManager
	hasher   *security.Hasher
	clock    clock.Clock
	auditor  *audit.Service
}

func NewService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	tokenMgr *auth.TokenManager,
	hasher *security.Hasher,
	clk clock.Clock,
	auditor *audit.Service,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		tokenMgr: tokenMgr,
		hasher:   hasher,
		clock:    clk,
		auditor:  auditor,
	}
}

// Login verifies credentials and issues an access/refresh token pair.
// The refresh token's hash is stored so it can be revoked before expiry.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials", nil)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account is disabled", nil)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials", nil)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.clock.Now()); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to record last login")
	}

	s.auditor.Log(ctx, user.ID, model.AuditActionLogin, model.AuditEntityUser, user.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"email": user.Email},
	})

	return tokens, nil
}

// Refresh validates a refresh token against both its signature and the
// stored hash, then rotates it: the old token is revoked and a fresh
// pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.tokenMgr.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token", err)
	}

	stored, err := s.tokens.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token", err)
	}
	if stored.Expired(s.clock.Now()) {
		return nil, apperrors.NewUnauthorized("refresh token expired or revoked", nil)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token", err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account is disabled", nil)
	}

	if err := s.tokens.Revoke(ctx, stored.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, user.ID, model.AuditActionTokenRefresh, model.AuditEntityUser, user.ID, nil)

	return tokens, nil
}

// ValidateAccessToken verifies a bearer token for the auth middleware.
func (s *Service) ValidateAccessToken(token string) (*model.TokenClaims, error) {
	return s.tokenMgr.ValidateToken(token)
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, user *model.User) (*model.TokenResponse, error) {
	accessToken, expiresAt, err := s.tokenMgr.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, refreshExpiresAt, err := s.tokenMgr.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.tokens.Store(ctx, &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
