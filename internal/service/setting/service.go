package setting

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
)

// Feature flag keys seeded by the migrations.
const (
	FlagQueueAutoRefresh       = "feature.queue_auto_refresh"
	FlagEmergencyNotifications = "feature.emergency_notifications"
)

const (
	cacheTTL        = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

// Service serves system settings and feature flags with a short-lived
// in-process read cache. Upserts invalidate the cached entry so a new
// value is visible within one TTL on other instances.
type Service struct {
	repo    repository.SettingRepository
	cache   *cache.Cache
	auditor *audit.Service
}

func NewService(repo repository.SettingRepository, auditor *audit.Service) *Service {
	return &Service{
		repo:    repo,
		cache:   cache.New(cacheTTL, cleanupInterval),
		auditor: auditor,
	}
}

func (s *Service) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.SystemSetting), nil
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, setting, cache.DefaultExpiration)
	return setting, nil
}

func (s *Service) List(ctx context.Context, publicOnly bool) ([]*model.SystemSetting, error) {
	return s.repo.List(ctx, publicOnly)
}

func (s *Service) Upsert(ctx context.Context, req *model.UpsertSettingRequest, actorID uuid.UUID) (*model.SystemSetting, error) {
	setting := &model.SystemSetting{
		Base:        model.Base{ID: uuid.New()},
		Key:         req.Key,
		Value:       req.Value,
		Type:        model.SettingType(req.Type),
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}

	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to upsert setting: %w", err)
	}
	s.cache.Delete(req.Key)

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntitySetting, setting.ID, &audit.LogOptions{
		Changes: req,
	})
	return setting, nil
}

// BoolFlag resolves a boolean feature flag, falling back to def when the
// flag is absent or not parseable as a boolean.
func (s *Service) BoolFlag(ctx context.Context, key string, def bool) bool {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	if setting.Type != model.SettingTypeBoolean {
		return def
	}
	value, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return def
	}
	return value
}

// IntSetting resolves an integer setting, falling back to def.
func (s *Service) IntSetting(ctx context.Context, key string, def int) int {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	if setting.Type != model.SettingTypeInteger {
		return def
	}
	value, err := strconv.Atoi(setting.Value)
	if err != nil {
		return def
	}
	return value
}
