package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/domain/course"
)

type CourseStore interface {
	Create(ctx context.Context, c course.Course) (course.Course, error)
	GetByID(ctx context.Context, id string) (course.Course, error)
	List(ctx context.Context, filter course.ListCoursesFilter) ([]course.Course, error)
	Update(ctx context.Context, c course.Course) (course.Course, error)
	Delete(ctx context.Context, id string) error
}

// StatsInvalidator drops cached statistics after a write that changes them.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

type CoursesHandler struct {
	store CourseStore
	stats StatsInvalidator
}

func NewCoursesHandler(store CourseStore, stats StatsInvalidator) *CoursesHandler {
	return &CoursesHandler{store: store, stats: stats}
}

func (h *CoursesHandler) List(ctx *gin.Context) {
	var filter course.ListCoursesFilter

	if category := ctx.Query("category"); category != "" {
		filter.Category = &category
	}
	if level := ctx.Query("level"); level != "" {
		filter.Level = &level
	}
	if q := ctx.Query("q"); q != "" {
		filter.Query = &q
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	courses, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list courses")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CoursesHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not fetch course")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CoursesHandler) Create(ctx *gin.Context) {
	var req course.CreateCourseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if !req.StartDate.IsZero() && !req.EndDate.IsZero() && req.EndDate.Before(req.StartDate.Time) {
		RespondBadRequest(ctx, "endDate must not be before startDate", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, course.NewFromCreateRequest(req))

	if err != nil {
		RespondInternal(ctx, "Could not create course")
		return
	}

	h.stats.Invalidate(cctx)

	ctx.JSON(http.StatusCreated, created)
}

func (h *CoursesHandler) Patch(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	var req course.UpdateCourseRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not update course")
		return
	}

	patched := course.ApplyPatch(existing, req)

	if !patched.StartDate.IsZero() && !patched.EndDate.IsZero() && patched.EndDate.Before(patched.StartDate.Time) {
		RespondBadRequest(ctx, "endDate must not be before startDate", nil)
		return
	}

	updated, err := h.store.Update(cctx, patched)

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not update course")
		return
	}

	h.stats.Invalidate(cctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *CoursesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, "Course not found")
			return
		}
		RespondInternal(ctx, "Could not delete course")
		return
	}

	h.stats.Invalidate(cctx)

	ctx.Status(http.StatusNoContent)
}
