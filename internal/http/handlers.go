/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/config"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/domain"
	"github.com/carloscedeno-creator/delivery-dashboard-sub002/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type service interface {
	ComputeBurndown(ctx context.Context, sprintID, developerID string, opts services.BurndownOptions) (domain.BurndownResult, error)
	ComputeSprintMetrics(ctx context.Context, sprintID string) (domain.SprintRollup, error)
	ComputeDeveloperMetrics(ctx context.Context, sprintID string) ([]domain.DeveloperRollup, error)
	SprintHistory(ctx context.Context, sprintID string) ([]domain.SprintRollup, error)
	GetLastRun(ctx context.Context) (any, error)
}

// trigger starts a background recompute pass; false means one is in flight.
type trigger interface {
	Trigger(squadID string) bool
}

type Handlers struct {
	cfg     config.Config
	log     zerolog.Logger
	svc     service
	trigger trigger
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service, tr trigger) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, trigger: tr}
}

// fail maps engine errors onto status codes.
func (h *Handlers) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSprintNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSprintWindow):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDataSourceUnavailable):
		code = http.StatusServiceUnavailable
	}
	if code >= 500 {
		h.log.Error().Err(err).Str("p", c.FullPath()).Msg("request failed")
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) Burndown(c *gin.Context) {
	dev := c.Query("developer")
	if dev == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "developer is required"})
		return
	}
	res, err := h.svc.ComputeBurndown(c.Request.Context(), c.Param("id"), dev, services.BurndownOptions{
		SquadID:      c.Query("squad"),
		InitiativeID: c.Query("initiative"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) ComputeSprintMetrics(c *gin.Context) {
	r, err := h.svc.ComputeSprintMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handlers) SprintHistory(c *gin.Context) {
	rs, err := h.svc.SprintHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if rs == nil {
		rs = []domain.SprintRollup{}
	}
	c.JSON(http.StatusOK, rs)
}

func (h *Handlers) ComputeDeveloperMetrics(c *gin.Context) {
	rs, err := h.svc.ComputeDeveloperMetrics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if rs == nil {
		rs = []domain.DeveloperRollup{}
	}
	c.JSON(http.StatusOK, rs)
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.GetLastRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lr)
}

// Recompute runs detached from the request so client disconnects do not cancel it.
func (h *Handlers) Recompute(c *gin.Context) {
	squad := c.Query("squad")
	if squad == "" {
		squad = h.cfg.RecomputeSquad
	}
	if !h.trigger.Trigger(squad) {
		c.JSON(http.StatusConflict, gin.H{"status": "busy"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "squad": squad})
}
