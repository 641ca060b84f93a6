package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/sheetform/internal/middleware"
)

// RouteOptions 路由注册参数
type RouteOptions struct {
	JWTSecret string
	Version   string
	BuildTime string
	// Ready 就绪检查（数据库、Redis），为 nil 时总是就绪
	Ready func(ctx context.Context) error
}

// RegisterRoutes 注册全部路由
func RegisterRoutes(r *gin.Engine, h *Handlers, opts RouteOptions) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    opts.Version,
			"build_time": opts.BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(opts.JWTSecret))
	{
		// SSE 实时推送（支持 query param token）
		v1.GET("/sse/events", h.SSE.Stream)

		forms := v1.Group("/forms")
		{
			forms.GET("", h.Form.List)
			forms.POST("", h.Form.Create)
			forms.GET("/:id", h.Form.Get)
			forms.POST("/:id/sync", middleware.RequireRole(middleware.AdminRole), h.Form.Sync)
			forms.GET("/:id/metadata/:kind", h.Form.Metadata)
			forms.GET("/:id/versions/:kind", h.Form.Versions)
			forms.POST("/:id/versions/:kind/:version/approve", middleware.RequireRole(middleware.AdminRole), h.Form.Approve)

			forms.POST("/:id/submissions", h.Submission.Submit)
			forms.GET("/:id/submissions", h.Submission.List)
			forms.GET("/:id/submissions/history", h.Submission.History)
		}

		v1.POST("/uploads", h.Upload.Upload)

		sheets := v1.Group("/sheets")
		{
			sheets.GET("/worksheets", h.Sheet.Worksheets)
			sheets.GET("/cell-metadata", h.Sheet.CellMetadata)
			sheets.GET("/snapshots", h.Sheet.Snapshot)
			sheets.POST("/schema", h.Sheet.Schema)
		}
	}
}
