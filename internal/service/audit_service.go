package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/pkg/config"
	"github.com/campuskit/blocks-api/pkg/jobs"
)

type auditLogWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService persists audit records asynchronously. A failed or dropped
// record never fails the action that produced it.
type AuditService struct {
	repo   auditLogWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditService constructs the service and its worker queue.
func NewAuditService(repo auditLogWriter, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("audit", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the audit workers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the audit workers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record enqueues one audit entry. The payload is marshalled eagerly so a
// later mutation of the value cannot change what gets logged.
func (s *AuditService) Record(actor models.Actor, action, resource string, resourceID string, payload interface{}) {
	entry := &models.AuditLog{
		ID:       uuid.NewString(),
		Action:   action,
		Resource: resource,
	}
	if actor.UserID != "" {
		actorID := actor.UserID
		entry.ActorID = &actorID
	}
	if resourceID != "" {
		id := resourceID
		entry.ResourceID = &id
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("audit payload marshal failed", zap.String("action", action), zap.Error(err))
		} else {
			entry.Payload = raw
		}
	}

	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: action, Payload: entry}); err != nil {
		s.logger.Warn("audit enqueue failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Warn("audit job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, entry)
}
