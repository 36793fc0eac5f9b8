// Package stats computes the portal-wide counters and the top-course
// ranking. Reads go through a short-TTL cache; each underlying count is an
// independent query, so the snapshot is best-effort under concurrent
// writers.
package stats

import (
	"context"
	"encoding/json"

	"github.com/instihub/portal/internal/cache"
	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/observability"
)

const DefaultTopLimit = 10

const (
	systemStatsKey = "stats:system"
	topCoursesKey  = "stats:top_courses"
)

type UserCounter interface {
	CountByRoleAndEnabled(ctx context.Context, role string, enabled bool) (int64, error)
}

type CourseCounter interface {
	CountByEnabled(ctx context.Context, enabled bool) (int64, error)
	TopCourses(ctx context.Context, limit int) ([]course.TopCourse, error)
}

type EnrollmentCounter interface {
	CountByApproved(ctx context.Context, approved bool) (int64, error)
}

// Snapshot carries the six independent counts. Field names on the wire
// match the portal's public stats payload.
type Snapshot struct {
	EnabledStudents        int64 `json:"enabledStudents"`
	EnabledAdmin           int64 `json:"enabledAdmin"`
	EnabledInstructor      int64 `json:"enabledInstructor"`
	EnabledCourses         int64 `json:"enabledCourses"`
	ApprovedEnrollments    int64 `json:"approvedEnrollments"`
	NotApprovedEnrollments int64 `json:"notApprovedEnrollments"`
}

type Service struct {
	users       UserCounter
	courses     CourseCounter
	enrollments EnrollmentCounter
	cache       cache.Store
	prom        *observability.Prom
}

// cache and prom may be nil; both degrade to recomputing on every call.

func NewService(users UserCounter, courses CourseCounter, enrollments EnrollmentCounter, cacheStore cache.Store, prom *observability.Prom) *Service {
	return &Service{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		cache:       cacheStore,
		prom:        prom,
	}
}

func (s *Service) SystemStats(ctx context.Context) (snap Snapshot, err error) {
	if s.cacheGet(ctx, systemStatsKey, &snap) {
		return
	}

	snap.EnabledStudents, err = s.users.CountByRoleAndEnabled(ctx, user.RoleStudent, true)

	if err != nil {
		return
	}

	snap.EnabledAdmin, err = s.users.CountByRoleAndEnabled(ctx, user.RoleAdmin, true)

	if err != nil {
		return
	}

	snap.EnabledInstructor, err = s.users.CountByRoleAndEnabled(ctx, user.RoleInstructor, true)

	if err != nil {
		return
	}

	snap.EnabledCourses, err = s.courses.CountByEnabled(ctx, true)

	if err != nil {
		return
	}

	snap.ApprovedEnrollments, err = s.enrollments.CountByApproved(ctx, true)

	if err != nil {
		return
	}

	snap.NotApprovedEnrollments, err = s.enrollments.CountByApproved(ctx, false)

	if err != nil {
		return
	}

	s.cacheSet(ctx, systemStatsKey, snap)
	return
}

// TopCourses returns up to limit enabled courses ordered by enrollment
// count descending; ties order by course id. Only the default limit is
// cached.

func (s *Service) TopCourses(ctx context.Context, limit int) ([]course.TopCourse, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	cacheable := limit == DefaultTopLimit

	if cacheable {
		var cached []course.TopCourse

		if s.cacheGet(ctx, topCoursesKey, &cached) {
			return cached, nil
		}
	}

	top, err := s.courses.TopCourses(ctx, limit)

	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cacheSet(ctx, topCoursesKey, top)
	}

	return top, nil
}

// Invalidate drops the cached snapshots. Called after any write that can
// shift a count.

func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.cache.Delete(ctx, systemStatsKey, topCoursesKey)
}

func (s *Service) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}

	raw, ok := s.cache.Get(ctx, key)

	if !ok {
		if s.prom != nil {
			s.prom.CacheMisses.WithLabelValues(key).Inc()
		}
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// treat a corrupt entry as a miss
		s.cache.Delete(ctx, key)
		return false
	}

	if s.prom != nil {
		s.prom.CacheHits.WithLabelValues(key).Inc()
	}

	return true
}

func (s *Service) cacheSet(ctx context.Context, key string, val interface{}) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(val)

	if err != nil {
		return
	}

	s.cache.Set(ctx, key, raw)
}
