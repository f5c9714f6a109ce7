package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

const summaryCacheKeyPrefix = "blocks:summary:"

// DashboardService aggregates per-group utilization figures. The summary is
// the only cached read in this API; the block directory itself stays
// cache-less so staff always see authoritative counts.
type DashboardService struct {
	groups   groupReader
	sections sectionLister
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(groups groupReader, sections sectionLister, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{groups: groups, sections: sections, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// GroupSummary returns the utilization summary for one group, served from
// cache when fresh.
func (s *DashboardService) GroupSummary(ctx context.Context, groupID string) (*models.GroupSummary, error) {
	key := summaryCacheKeyPrefix + groupID
	var cached models.GroupSummary
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block group")
	}
	sections, err := s.sections.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	summary := models.GroupSummary{GroupID: group.ID, Name: group.Name}
	for _, section := range sections {
		summary.SectionCount++
		summary.TotalCapacity += section.Capacity
		summary.TotalPopulation += section.CurrentPopulation
		if section.Status == models.SectionStatusOpen {
			summary.OpenSections++
			if slots := section.AvailableSlots(); slots > 0 {
				summary.RemainingSlots += slots
			}
		}
	}

	if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Debug("summary cache write failed", zap.String("group_id", groupID), zap.Error(err))
	}
	return &summary, nil
}

// InvalidateGroup drops the cached summary after a mutation in the group's
// scope.
func (s *DashboardService) InvalidateGroup(ctx context.Context, groupID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("%s%s", summaryCacheKeyPrefix, groupID)); err != nil {
		s.logger.Debug("summary cache invalidate failed", zap.String("group_id", groupID), zap.Error(err))
	}
}
