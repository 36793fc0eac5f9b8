// Package enroll owns enrollment integrity: referential checks against the
// user and course stores, the one-enrollment-per-pair rule, and the
// denormalized detail views.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/instihub/portal/internal/daterange"
	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.

type UserStore interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type CourseStore interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (course.Course, error)
}

type EnrollmentStore interface {
	Create(ctx context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error)
	GetByID(ctx context.Context, id string) (enrollment.Enrollment, error)
	List(ctx context.Context) ([]enrollment.Enrollment, error)
	FindByCourse(ctx context.Context, courseID string) ([]enrollment.Enrollment, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (enrollment.Enrollment, error)
	FindBetween(ctx context.Context, from, to time.Time) ([]enrollment.Enrollment, error)
}

type Service struct {
	users       UserStore
	courses     CourseStore
	enrollments EnrollmentStore
}

func NewService(users UserStore, courses CourseStore, enrollments EnrollmentStore) *Service {
	return &Service{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
	}
}

// Enroll creates exactly one enrollment for the pair. Check order is fixed:
// student existence, course existence, then the duplicate lookup — so when
// several preconditions fail at once, the caller sees the existence error.
// The enrollment timestamp is assigned only after every check passes.

func (s *Service) Enroll(ctx context.Context, req enrollment.CreateEnrollmentRequest) (created enrollment.Enrollment, err error) {
	exists, err := s.users.ExistsByID(ctx, req.StudentID)

	if err != nil {
		return
	}

	if !exists {
		err = fmt.Errorf("%w: student %s", user.ErrNotFound, req.StudentID)
		return
	}

	exists, err = s.courses.ExistsByID(ctx, req.CourseID)

	if err != nil {
		return
	}

	if !exists {
		err = fmt.Errorf("%w: course %s", course.ErrNotFound, req.CourseID)
		return
	}

	// exact-pair duplicate check; the store's unique index backstops the
	// race between two concurrent calls for the same pair
	_, err = s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)

	if err == nil {
		err = fmt.Errorf("%w: student %s, course %s", enrollment.ErrAlreadyEnrolled, req.StudentID, req.CourseID)
		return
	}

	if !errors.Is(err, enrollment.ErrNotFound) {
		return
	}

	created, err = s.enrollments.Create(ctx, enrollment.NewFromCreateRequest(req))
	return
}

// Compose expands one enrollment with its referenced student and course.
// A dangling reference is a reportable error, never a crash.

func (s *Service) Compose(ctx context.Context, en enrollment.Enrollment) (detail enrollment.Detail, err error) {
	student, err := s.users.GetByID(ctx, en.StudentID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			err = fmt.Errorf("%w: student %s", user.ErrNotFound, en.StudentID)
		}

		return
	}

	c, err := s.courses.GetByID(ctx, en.CourseID)

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			err = fmt.Errorf("%w: course %s", course.ErrNotFound, en.CourseID)
		}

		return
	}

	detail = enrollment.Detail{
		Enrollment: en,
		Student:    student,
		Course:     c,
	}
	return
}

func (s *Service) ComposeByID(ctx context.Context, id string) (enrollment.Detail, error) {
	en, err := s.enrollments.GetByID(ctx, id)

	if err != nil {
		return enrollment.Detail{}, err
	}

	return s.Compose(ctx, en)
}

// AllDetails expands every enrollment; the first dangling reference aborts
// the whole batch.

func (s *Service) AllDetails(ctx context.Context) ([]enrollment.Detail, error) {
	enrollments, err := s.enrollments.List(ctx)

	if err != nil {
		return nil, err
	}

	return s.composeAll(ctx, enrollments)
}

// DetailsByCourse lists the enrollments held against one course, expanded.
// An unknown course id is an error rather than an empty list.

func (s *Service) DetailsByCourse(ctx context.Context, courseID string) ([]enrollment.Detail, error) {
	exists, err := s.courses.ExistsByID(ctx, courseID)

	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: course %s", course.ErrNotFound, courseID)
	}

	enrollments, err := s.enrollments.FindByCourse(ctx, courseID)

	if err != nil {
		return nil, err
	}

	return s.composeAll(ctx, enrollments)
}

// DetailsBetween narrows to the inclusive calendar-day range, then expands
// each candidate.

func (s *Service) DetailsBetween(ctx context.Context, startDate, endDate string) ([]enrollment.Detail, error) {
	from, to, err := daterange.ParseInclusiveRange(startDate, endDate)

	if err != nil {
		return nil, err
	}

	enrollments, err := s.enrollments.FindBetween(ctx, from, to)

	if err != nil {
		return nil, err
	}

	return s.composeAll(ctx, enrollments)
}

func (s *Service) composeAll(ctx context.Context, enrollments []enrollment.Enrollment) ([]enrollment.Detail, error) {
	details := make([]enrollment.Detail, 0, len(enrollments))

	for _, en := range enrollments {
		detail, err := s.Compose(ctx, en)

		if err != nil {
			// fail fast, no partial result
			return nil, err
		}

		details = append(details, detail)
	}

	return details, nil
}
