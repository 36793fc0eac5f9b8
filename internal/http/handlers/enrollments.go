package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/daterange"
	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/http/middlewares"
)

// Enroller is the integrity service surface the handlers call into.
type Enroller interface {
	Enroll(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error)
	ComposeByID(ctx context.Context, id string) (enrollment.Detail, error)
	AllDetails(ctx context.Context) ([]enrollment.Detail, error)
	DetailsByCourse(ctx context.Context, courseID string) ([]enrollment.Detail, error)
	DetailsBetween(ctx context.Context, startDate, endDate string) ([]enrollment.Detail, error)
}

type EnrollmentStore interface {
	GetByID(ctx context.Context, id string) (enrollment.Enrollment, error)
	FindByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error)
	Update(ctx context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error)
	Delete(ctx context.Context, id string) error
}

type EnrollmentsHandler struct {
	svc   Enroller
	store EnrollmentStore
	stats StatsInvalidator
}

func NewEnrollmentsHandler(svc Enroller, store EnrollmentStore, stats StatsInvalidator) *EnrollmentsHandler {
	return &EnrollmentsHandler{svc: svc, store: store, stats: stats}
}

// Enroll registers the calling student on a course. Admins may enroll any
// student by supplying studentId; students are pinned to their own id.

func (h *EnrollmentsHandler) Enroll(ctx *gin.Context) {
	var req enrollment.CreateEnrollmentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, _ := middlewares.RoleFromContext(ctx)

	if role == user.RoleStudent {
		callerID, ok := middlewares.UserIDFromContext(ctx)

		if !ok {
			RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
			return
		}

		if req.StudentID != callerID {
			RespondError(ctx, http.StatusForbidden, "forbidden", "Students can only enroll themselves.", nil)
			return
		}
	}

	cctx, cancel := config.WithTimeout(4 * time.Second)
	defer cancel()

	created, err := h.svc.Enroll(cctx, req)

	if err != nil {
		h.respondEnrollError(ctx, err)
		return
	}

	h.stats.Invalidate(cctx)

	ctx.JSON(http.StatusCreated, created)
}

// Mine lists the calling student's own enrollments. Admins may pass
// studentId to inspect another student's list.

func (h *EnrollmentsHandler) Mine(ctx *gin.Context) {
	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	studentID := callerID

	if queried := ctx.Query("studentId"); queried != "" && queried != callerID {
		role, _ := middlewares.RoleFromContext(ctx)

		if role != user.RoleAdmin {
			RespondError(ctx, http.StatusForbidden, "forbidden", "Students can only list their own enrollments.", nil)
			return
		}

		if !validID(ctx, queried) {
			return
		}

		studentID = queried
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	enrollments, err := h.store.FindByStudent(cctx, studentID)

	if err != nil {
		RespondInternal(ctx, "Could not list enrollments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}

// List returns every enrollment expanded with its student and course. With
// both startDate and endDate present it narrows to that inclusive day range;
// courseId narrows to one course's roster instead.

func (h *EnrollmentsHandler) List(ctx *gin.Context) {
	startDate := ctx.Query("startDate")
	endDate := ctx.Query("endDate")
	courseID := ctx.Query("courseId")

	if (startDate == "") != (endDate == "") {
		RespondBadRequest(ctx, "startDate and endDate must be supplied together", nil)
		return
	}

	if courseID != "" {
		if startDate != "" {
			RespondBadRequest(ctx, "courseId cannot be combined with a date range", nil)
			return
		}

		if !validID(ctx, courseID) {
			return
		}
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	var (
		details []enrollment.Detail
		err     error
	)

	switch {
	case courseID != "":
		details, err = h.svc.DetailsByCourse(cctx, courseID)
	case startDate != "":
		details, err = h.svc.DetailsBetween(cctx, startDate, endDate)
	default:
		details, err = h.svc.AllDetails(cctx)
	}

	if err != nil {
		if errors.Is(err, daterange.ErrInvalidDate) || errors.Is(err, daterange.ErrInvalidRange) {
			RespondBadRequest(ctx, err.Error(), nil)
			return
		}

		// a dangling student/course reference surfaces here as not-found
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, err.Error())
			return
		}

		RespondInternal(ctx, "Could not list enrollments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"enrollments": details})
}

func (h *EnrollmentsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	detail, err := h.svc.ComposeByID(cctx, id)

	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			RespondNotFound(ctx, "Enrollment not found")
			return
		}

		if errors.Is(err, user.ErrNotFound) || errors.Is(err, course.ErrNotFound) {
			RespondNotFound(ctx, err.Error())
			return
		}

		RespondInternal(ctx, "Could not fetch enrollment")
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func (h *EnrollmentsHandler) Patch(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	var req enrollment.UpdateEnrollmentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	en, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			RespondNotFound(ctx, "Enrollment not found")
			return
		}
		RespondInternal(ctx, "Could not update enrollment")
		return
	}

	if req.StudentID != nil {
		en.StudentID = *req.StudentID
	}
	if req.CourseID != nil {
		en.CourseID = *req.CourseID
	}
	if req.Approved != nil {
		en.IsApproved = *req.Approved
	}

	updated, err := h.store.Update(cctx, en)

	if err != nil {
		if errors.Is(err, enrollment.ErrAlreadyEnrolled) {
			RespondConflict(ctx, "already_enrolled", "That student is already enrolled on that course.")
			return
		}
		if errors.Is(err, enrollment.ErrNotFound) {
			RespondNotFound(ctx, "Enrollment not found")
			return
		}
		RespondInternal(ctx, "Could not update enrollment")
		return
	}

	h.stats.Invalidate(cctx)

	ctx.JSON(http.StatusOK, updated)
}

func (h *EnrollmentsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			RespondNotFound(ctx, "Enrollment not found")
			return
		}
		RespondInternal(ctx, "Could not delete enrollment")
		return
	}

	h.stats.Invalidate(cctx)

	ctx.Status(http.StatusNoContent)
}

func (h *EnrollmentsHandler) respondEnrollError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, course.ErrNotFound):
		RespondNotFound(ctx, err.Error())
	case errors.Is(err, enrollment.ErrAlreadyEnrolled):
		RespondConflict(ctx, "already_enrolled", "That student is already enrolled on that course.")
	default:
		RespondInternal(ctx, "Could not create enrollment")
	}
}
