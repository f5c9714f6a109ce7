package main

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campuskit/blocks-api/internal/handler"
	"github.com/campuskit/blocks-api/pkg/config"
)

func buildTestRouter(cfg *config.Config, withExports bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := apiHandlers{
		blocks:      handler.NewBlockHandler(nil),
		assignments: handler.NewAssignmentHandler(nil, nil),
		resolutions: handler.NewResolutionHandler(nil),
		dashboard:   handler.NewDashboardHandler(nil),
		metrics:     handler.NewMetricsHandler(nil),
	}
	if withExports {
		h.exports = handler.NewExportHandler(nil)
	}
	r := gin.New()
	registerRoutes(r, cfg, nil, h, func(c *gin.Context) {})
	return r
}

func routeSet(r *gin.Engine) map[string]bool {
	set := make(map[string]bool)
	for _, route := range r.Routes() {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

func TestBlocksRoutesMountedUnderAPIPrefix(t *testing.T) {
	cfg := &config.Config{
		Env:       config.EnvProduction,
		APIPrefix: "/api",
		Dashboard: config.DashboardConfig{Enabled: true},
	}
	routes := routeSet(buildTestRouter(cfg, true))

	for _, want := range []string{
		http.MethodGet + " /api/blocks/groups",
		http.MethodPost + " /api/blocks/groups",
		http.MethodDelete + " /api/blocks/groups/:groupId",
		http.MethodGet + " /api/blocks/groups/:groupId/sections",
		http.MethodPost + " /api/blocks/groups/:groupId/sections",
		http.MethodGet + " /api/blocks/groups/:groupId/summary",
		http.MethodGet + " /api/blocks/assignable-students",
		http.MethodGet + " /api/blocks/sections/:sectionId/students",
		http.MethodPost + " /api/blocks/assign-student",
		http.MethodPost + " /api/blocks/assign-students",
		http.MethodDelete + " /api/blocks/assignments/:assignmentId",
		http.MethodGet + " /api/blocks/overcapacity/:resolutionId",
		http.MethodPost + " /api/blocks/overcapacity/decision",
		http.MethodPost + " /api/blocks/overcapacity/:resolutionId/cancel",
		http.MethodPost + " /api/blocks/sections/:sectionId/export",
		http.MethodGet + " /api/exports/download",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}

	// Operational endpoints stay at the root, outside the API prefix.
	assert.True(t, routes[http.MethodGet+" /health"])
	assert.True(t, routes[http.MethodGet+" /ready"])
	assert.True(t, routes[http.MethodGet+" /metrics"])
	assert.False(t, routes[http.MethodGet+" /blocks/groups"])
}

func TestOptionalRoutesFollowFeatureFlags(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api"}
	routes := routeSet(buildTestRouter(cfg, false))

	assert.False(t, routes[http.MethodGet+" /api/blocks/groups/:groupId/summary"])
	assert.False(t, routes[http.MethodPost+" /api/blocks/sections/:sectionId/export"])
	assert.False(t, routes[http.MethodGet+" /api/exports/download"])
	assert.False(t, routes[http.MethodGet+" /docs/*any"])

	dev := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api"}
	routes = routeSet(buildTestRouter(dev, false))
	assert.True(t, routes[http.MethodGet+" /docs/*any"])
}
