package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/security"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (f *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return apperrors.NewNotFound("user", nil)
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperrors.NewNotFound("user", nil)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.User
	for _, u := range f.users {
		if filters != nil && filters.Role != "" && u.Role != filters.Role {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type fakeTokenRepo struct {
	mu           sync.Mutex
	revokedUsers []uuid.UUID
}

func (f *fakeTokenRepo) Store(ctx context.Context, token *model.RefreshToken) error { return nil }

func (f *fakeTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	return nil, apperrors.NewNotFound("refresh token", nil)
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeTokenRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokedUsers = append(f.revokedUsers, userID)
	return nil
}

func (f *fakeTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)
var _ repository.TokenRepository = (*fakeTokenRepo)(nil)
var _ repository.AuditRepository = (*fakeAuditRepo)(nil)

func newTestService() (*Service, *fakeUserRepo, *fakeTokenRepo) {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	tokens := &fakeTokenRepo{}
	svc := NewService(repo, tokens, security.NewHasher(bcrypt.MinCost), audit.NewService(&fakeAuditRepo{}))
	return svc, repo, tokens
}

func TestCreateHashesPassword(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "nurse@clinic.example",
		Name:     "Afia Boateng",
		Password: "s3cure-enough",
		Role:     "nurse",
	}, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, model.UserRoleNurse, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "s3cure-enough", user.PasswordHash)
	require.NoError(t, security.NewHasher(bcrypt.MinCost).Compare(user.PasswordHash, "s3cure-enough"))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	actor := uuid.New()

	_, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "nurse@clinic.example",
		Name:     "Afia Boateng",
		Password: "s3cure-enough",
		Role:     "nurse",
	}, actor)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "nurse@clinic.example",
		Name:     "Another Person",
		Password: "s3cure-enough",
		Role:     "doctor",
	}, actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "nurse@clinic.example",
		Name:     "Afia Boateng",
		Password: "short",
		Role:     "nurse",
	}, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestDeactivationRevokesRefreshTokens(t *testing.T) {
	svc, _, tokens := newTestService()
	actor := uuid.New()

	user, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "doctor@clinic.example",
		Name:     "Dr. Mensah",
		Password: "s3cure-enough",
		Role:     "doctor",
	}, actor)
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), user.ID, &model.UpdateUserRequest{IsActive: &inactive}, actor)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, tokens.revokedUsers)

	// Re-activating does not revoke again.
	active := true
	_, err = svc.Update(context.Background(), user.ID, &model.UpdateUserRequest{IsActive: &active}, actor)
	require.NoError(t, err)
	assert.Len(t, tokens.revokedUsers, 1)
}

func TestDeleteRevokesRefreshTokens(t *testing.T) {
	svc, _, tokens := newTestService()
	actor := uuid.New()

	user, err := svc.Create(context.Background(), &model.CreateUserRequest{
		Email:    "reception@clinic.example",
		Name:     "Front Desk",
		Password: "s3cure-enough",
		Role:     "receptionist",
	}, actor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user.ID, actor))
	assert.Contains(t, tokens.revokedUsers, user.ID)

	_, err = svc.Get(context.Background(), user.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
