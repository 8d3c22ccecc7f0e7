/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"net/http"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, h *Handlers, metrics http.Handler) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	r.GET("/healthz", h.Healthz)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	s := r.Group("/sprints/:id")
	s.GET("/burndown", h.Burndown)
	s.POST("/metrics", h.ComputeSprintMetrics)
	s.GET("/metrics", h.SprintHistory)
	s.POST("/developer-metrics", h.ComputeDeveloperMetrics)

	r.GET("/admin/last-run", h.LastRun)
	r.POST("/admin/recompute", h.Recompute)

	return r
}
