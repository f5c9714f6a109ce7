package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/campuskit/blocks-api/internal/handler"
	"github.com/campuskit/blocks-api/internal/middleware"
	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/service"
	"github.com/campuskit/blocks-api/pkg/config"
)

type apiHandlers struct {
	blocks      *handler.BlockHandler
	assignments *handler.AssignmentHandler
	resolutions *handler.ResolutionHandler
	dashboard   *handler.DashboardHandler
	metrics     *handler.MetricsHandler
	exports     *handler.ExportHandler // nil when exports are disabled
}

// registerRoutes wires all endpoints. Operational endpoints (health, ready,
// metrics, docs) live at the router root; the API surface is mounted under
// cfg.APIPrefix.
func registerRoutes(r *gin.Engine, cfg *config.Config, authSvc *service.AuthService, h apiHandlers, ready gin.HandlerFunc) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleRegistrar}
	readers := append([]models.UserRole{models.RoleProfessor}, staff...)

	blocks := r.Group(cfg.APIPrefix+"/blocks", middleware.JWT(authSvc))
	{
		blocks.GET("/groups", middleware.RequireRoles(readers...), h.blocks.ListGroups)
		blocks.POST("/groups", middleware.RequireRoles(staff...), h.blocks.CreateGroup)
		blocks.DELETE("/groups/:groupId", middleware.RequireRoles(staff...), h.blocks.DeleteGroup)
		blocks.GET("/groups/:groupId/sections", middleware.RequireRoles(readers...), h.blocks.ListSections)
		blocks.POST("/groups/:groupId/sections", middleware.RequireRoles(staff...), h.blocks.CreateSection)

		if cfg.Dashboard.Enabled {
			blocks.GET("/groups/:groupId/summary", middleware.RequireRoles(readers...), h.dashboard.GroupSummary)
		}

		blocks.GET("/assignable-students", middleware.RequireRoles(staff...), h.assignments.ListAssignable)
		blocks.GET("/sections/:sectionId/students", middleware.RequireRoles(readers...), h.assignments.SectionStudents)
		blocks.POST("/assign-student", middleware.RequireRoles(staff...), h.assignments.Assign)
		blocks.POST("/assign-students", middleware.RequireRoles(staff...), h.assignments.AssignBatch)
		blocks.DELETE("/assignments/:assignmentId", middleware.RequireRoles(staff...), h.assignments.Remove)

		blocks.GET("/overcapacity/:resolutionId", middleware.RequireRoles(staff...), h.resolutions.Get)
		blocks.POST("/overcapacity/decision", middleware.RequireRoles(staff...), h.resolutions.Decide)
		blocks.POST("/overcapacity/:resolutionId/cancel", middleware.RequireRoles(staff...), h.resolutions.Cancel)
	}

	if h.exports != nil {
		blocks.POST("/sections/:sectionId/export", middleware.RequireRoles(staff...), h.exports.Export)
		r.GET(cfg.APIPrefix+"/exports/download", h.exports.Download)
	}
}
