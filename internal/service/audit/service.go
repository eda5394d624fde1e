package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
)

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes   interface{}
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log records an audit entry. Failures are logged and never propagated
// so a broken trail cannot fail the operation it describes.
func (s *Service) Log(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	var changes, metadata json.RawMessage
	var ipAddress, userAgent string

	if opts != nil {
		if opts.Changes != nil {
			data, err := json.Marshal(opts.Changes)
			if err != nil {
				log.Error().Err(err).Str("entity_type", entityType).Msg("failed to marshal audit changes")
			} else {
				changes = data
			}
		}
		if opts.Metadata != nil {
			data, err := json.Marshal(opts.Metadata)
			if err != nil {
				log.Error().Err(err).Str("entity_type", entityType).Msg("failed to marshal audit metadata")
			} else {
				metadata = data
			}
		}
		ipAddress = opts.IPAddress
		userAgent = opts.UserAgent
	}

	if gc, ok := ctx.(*gin.Context); ok && ipAddress == "" {
		ipAddress = gc.ClientIP()
		userAgent = gc.GetHeader("User-Agent")
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Msg("failed to write audit log")
	}
}

func (s *Service) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return s.repo.List(ctx, filters)
}
