package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hse-ops/hazard-report-api/internal/middleware"
	"github.com/hse-ops/hazard-report-api/internal/service"
)

// Handlers bundles every HTTP handler the server mounts.
type Handlers struct {
	Reports *ReportHandler
	Exports *ExportHandler
	Auth    *AuthHandler
	Orders  *OrderHandler
	Metrics *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Export
// routes are registered alongside the report id routes; gin resolves the
// static "export" segment before the ":id" parameter.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, submitLimiter gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	reports := api.Group("/reports")
	{
		create := reports.Group("")
		if submitLimiter != nil {
			create.Use(submitLimiter)
		}
		create.POST("", h.Reports.Create)

		reports.GET("", h.Reports.List)
		reports.GET("/export", h.Exports.Begin)
		reports.GET("/export/:taskId", h.Exports.Status)
		reports.GET("/export/:taskId/download", h.Exports.Download)
		reports.GET("/:id", h.Reports.Get)
		reports.GET("/:id/status-history", h.Reports.History)
		reports.PATCH("/:id/status", middleware.OptionalJWT(auth), h.Reports.SetStatus)
	}

	orders := api.Group("/orders")
	{
		orders.GET("", h.Orders.List)
		orders.GET("/:filename", h.Orders.Download)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", h.Auth.Login)

		protected := admin.Group("")
		protected.Use(middleware.JWT(auth))
		protected.GET("/me", h.Auth.Me)
		protected.GET("/reports", h.Reports.List)
		protected.GET("/reports/export", h.Exports.Begin)
		protected.GET("/reports/export/:taskId", h.Exports.Status)
		protected.GET("/reports/export/:taskId/download", h.Exports.Download)
		protected.GET("/reports/:id", h.Reports.Get)
		protected.PATCH("/reports/:id/status", h.Reports.SetStatus)
		protected.DELETE("/reports/:id", h.Reports.Delete)
	}
}
