// Package memory holds map-backed Record Store doubles. They mirror the
// postgres repos' contracts closely enough for service tests and local
// experiments without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{items: make(map[string]user.User)}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	r.items[u.ID] = u
	r.mu.Unlock()

	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	u, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	_, ok := r.items[id]
	r.mu.RUnlock()

	return ok, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *UsersRepo) CountByRoleAndEnabled(_ context.Context, role string, enabled bool) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64

	for _, u := range r.items {
		if u.Role == role && u.IsEnabled == enabled {
			total++
		}
	}

	return total, nil
}

type CoursesRepo struct {
	mu          sync.RWMutex
	items       map[string]course.Course
	enrollments *EnrollmentsRepo
}

func NewCoursesRepo() *CoursesRepo {
	return &CoursesRepo{items: make(map[string]course.Course)}
}

// LinkEnrollments gives TopCourses an enrollment double to count against.
func (r *CoursesRepo) LinkEnrollments(enrollments *EnrollmentsRepo) {
	r.enrollments = enrollments
}

func (r *CoursesRepo) Create(_ context.Context, c course.Course) (course.Course, error) {
	r.mu.Lock()
	r.items[c.ID] = c
	r.mu.Unlock()

	return c, nil
}

func (r *CoursesRepo) GetByID(_ context.Context, id string) (course.Course, error) {
	r.mu.RLock()
	c, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return course.Course{}, course.ErrNotFound
	}

	return c, nil
}

func (r *CoursesRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	_, ok := r.items[id]
	r.mu.RUnlock()

	return ok, nil
}

func (r *CoursesRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return course.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *CoursesRepo) CountByEnabled(_ context.Context, enabled bool) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64

	for _, c := range r.items {
		if c.IsEnabled == enabled {
			total++
		}
	}

	return total, nil
}

// TopCourses ranks enabled courses by enrollment count descending, course id
// ascending on ties. Courses with no enrollments keep a zero count, matching
// the left join in the postgres repo.
func (r *CoursesRepo) TopCourses(_ context.Context, limit int) ([]course.TopCourse, error) {
	counts := make(map[string]int64)

	if r.enrollments != nil {
		r.enrollments.mu.RLock()
		for _, en := range r.enrollments.items {
			counts[en.CourseID]++
		}
		r.enrollments.mu.RUnlock()
	}

	r.mu.RLock()

	top := make([]course.TopCourse, 0, len(r.items))

	for _, c := range r.items {
		if !c.IsEnabled {
			continue
		}

		top = append(top, course.TopCourse{
			CourseID:        c.ID,
			Title:           c.Title,
			EnrollmentCount: counts[c.ID],
		})
	}

	r.mu.RUnlock()

	sort.Slice(top, func(i, j int) bool {
		if top[i].EnrollmentCount == top[j].EnrollmentCount {
			return top[i].CourseID < top[j].CourseID
		}
		return top[i].EnrollmentCount > top[j].EnrollmentCount
	})

	if limit < len(top) {
		top = top[:limit]
	}

	return top, nil
}

type EnrollmentsRepo struct {
	mu    sync.RWMutex
	items map[string]enrollment.Enrollment
}

func NewEnrollmentsRepo() *EnrollmentsRepo {
	return &EnrollmentsRepo{items: make(map[string]enrollment.Enrollment)}
}

func (r *EnrollmentsRepo) Create(_ context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// same backstop the unique index provides in postgres
	for _, existing := range r.items {
		if existing.StudentID == en.StudentID && existing.CourseID == en.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}

	r.items[en.ID] = en
	return en, nil
}

func (r *EnrollmentsRepo) GetByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	r.mu.RLock()
	en, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}

	return en, nil
}

func (r *EnrollmentsRepo) List(_ context.Context) ([]enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sorted(), nil
}

func (r *EnrollmentsRepo) FindByCourse(_ context.Context, courseID string) ([]enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]enrollment.Enrollment, 0)

	for _, en := range r.sorted() {
		if en.CourseID == courseID {
			out = append(out, en)
		}
	}

	return out, nil
}

func (r *EnrollmentsRepo) FindByStudentAndCourse(_ context.Context, studentID, courseID string) (enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, en := range r.items {
		if en.StudentID == studentID && en.CourseID == courseID {
			return en, nil
		}
	}

	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (r *EnrollmentsRepo) FindBetween(_ context.Context, from, to time.Time) ([]enrollment.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]enrollment.Enrollment, 0)

	for _, en := range r.sorted() {
		if !en.EnrolledAt.Before(from) && !en.EnrolledAt.After(to) {
			out = append(out, en)
		}
	}

	return out, nil
}

func (r *EnrollmentsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return enrollment.ErrNotFound
	}

	delete(r.items, id)
	return nil
}

func (r *EnrollmentsRepo) CountByApproved(_ context.Context, approved bool) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64

	for _, en := range r.items {
		if en.IsApproved == approved {
			total++
		}
	}

	return total, nil
}

// callers hold the lock
func (r *EnrollmentsRepo) sorted() []enrollment.Enrollment {
	out := make([]enrollment.Enrollment, 0, len(r.items))

	for _, en := range r.items {
		out = append(out, en)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EnrolledAt.Before(out[j].EnrolledAt)
	})

	return out
}
