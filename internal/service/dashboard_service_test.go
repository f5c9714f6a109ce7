package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

// memoryCacheRepo mirrors the Redis repository contract with a plain map.
type memoryCacheRepo struct {
	items map[string][]byte
	gets  int
	sets  int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.items, pattern)
	return nil
}

type dashboardFixture struct {
	repo     *memoryCacheRepo
	groups   *stubGroupReader
	sections *stubSectionLister
	svc      *DashboardService
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		repo: newMemoryCacheRepo(),
		groups: &stubGroupReader{groups: map[string]*models.BlockGroup{
			"g1": {ID: "g1", Name: "103-1"},
		}},
		sections: &stubSectionLister{sections: map[string][]models.BlockSection{
			"g1": {
				{ID: "secA", Capacity: 40, CurrentPopulation: 38, Status: models.SectionStatusOpen},
				{ID: "secB", Capacity: 40, CurrentPopulation: 41, Status: models.SectionStatusOpen},
				{ID: "secC", Capacity: 30, CurrentPopulation: 30, Status: models.SectionStatusClosed},
			},
		}},
	}
	cache := NewCacheService(f.repo, nil, time.Minute, nil, true)
	f.svc = NewDashboardService(f.groups, f.sections, cache, time.Minute, nil)
	return f
}

func TestGroupSummaryAggregation(t *testing.T) {
	f := newDashboardFixture()

	summary, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "103-1", summary.Name)
	assert.Equal(t, 3, summary.SectionCount)
	assert.Equal(t, 2, summary.OpenSections)
	assert.Equal(t, 110, summary.TotalCapacity)
	assert.Equal(t, 109, summary.TotalPopulation)
	// The overcapacity section contributes no negative slots; the closed
	// section contributes none at all.
	assert.Equal(t, 2, summary.RemainingSlots)
}

func TestGroupSummaryServedFromCache(t *testing.T) {
	f := newDashboardFixture()

	first, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.sets)

	// Mutate the backing sections; the cached figures still win.
	f.sections.sections["g1"] = nil
	second, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, first.TotalPopulation, second.TotalPopulation)
	assert.Equal(t, 1, f.repo.sets)
}

func TestGroupSummaryInvalidation(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)

	f.sections.sections["g1"] = []models.BlockSection{
		{ID: "secA", Capacity: 40, CurrentPopulation: 40, Status: models.SectionStatusOpen},
	}
	f.svc.InvalidateGroup(context.Background(), "g1")

	summary, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SectionCount)
	assert.Equal(t, 40, summary.TotalPopulation)
}

func TestGroupSummaryUnknownGroup(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.svc.GroupSummary(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGroupSummaryWithCacheDisabled(t *testing.T) {
	f := newDashboardFixture()
	f.svc = NewDashboardService(f.groups, f.sections, NewCacheService(nil, nil, 0, nil, false), time.Minute, nil)

	summary, err := f.svc.GroupSummary(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.SectionCount)
}
