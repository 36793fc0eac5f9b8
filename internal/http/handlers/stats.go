package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/stats"
)

type StatsProvider interface {
	SystemStats(ctx context.Context) (stats.Snapshot, error)
	TopCourses(ctx context.Context, limit int) ([]course.TopCourse, error)
}

type StatsHandler struct {
	svc StatsProvider
}

func NewStatsHandler(svc StatsProvider) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) System(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	snap, err := h.svc.SystemStats(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not compute statistics")
		return
	}

	ctx.JSON(http.StatusOK, snap)
}

func (h *StatsHandler) TopCourses(ctx *gin.Context) {
	limit := stats.DefaultTopLimit

	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)

		if err != nil || parsed < 1 || parsed > 100 {
			RespondBadRequest(ctx, "limit must be an integer between 1 and 100", gin.H{"limit": raw})
			return
		}

		limit = parsed
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	top, err := h.svc.TopCourses(cctx, limit)

	if err != nil {
		RespondInternal(ctx, "Could not compute course ranking")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"topCourses": top})
}
