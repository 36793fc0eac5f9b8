package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/http/handlers"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func newUUID() string {
	return uuid.NewString()
}

// Fake implementations of the handler-side interfaces

type fakeEnroller struct {
	enrollFn         func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error)
	composeByIDFn    func(ctx context.Context, id string) (enrollment.Detail, error)
	allDetailsFn      func(ctx context.Context) ([]enrollment.Detail, error)
	detailsByCourseFn func(ctx context.Context, courseID string) ([]enrollment.Detail, error)
	detailsBetweenFn  func(ctx context.Context, startDate, endDate string) ([]enrollment.Detail, error)
}

func (f *fakeEnroller) Enroll(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
	if f.enrollFn != nil {
		return f.enrollFn(ctx, req)
	}
	return enrollment.Enrollment{}, nil
}

func (f *fakeEnroller) ComposeByID(ctx context.Context, id string) (enrollment.Detail, error) {
	if f.composeByIDFn != nil {
		return f.composeByIDFn(ctx, id)
	}
	return enrollment.Detail{}, nil
}

func (f *fakeEnroller) AllDetails(ctx context.Context) ([]enrollment.Detail, error) {
	if f.allDetailsFn != nil {
		return f.allDetailsFn(ctx)
	}
	return nil, nil
}

func (f *fakeEnroller) DetailsByCourse(ctx context.Context, courseID string) ([]enrollment.Detail, error) {
	if f.detailsByCourseFn != nil {
		return f.detailsByCourseFn(ctx, courseID)
	}
	return nil, nil
}

func (f *fakeEnroller) DetailsBetween(ctx context.Context, startDate, endDate string) ([]enrollment.Detail, error) {
	if f.detailsBetweenFn != nil {
		return f.detailsBetweenFn(ctx, startDate, endDate)
	}
	return nil, nil
}

type fakeEnrollmentStore struct {
	getFn           func(ctx context.Context, id string) (enrollment.Enrollment, error)
	findByStudentFn func(ctx context.Context, studentID string) ([]enrollment.Enrollment, error)
	updateFn        func(ctx context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error)
	deleteFn        func(ctx context.Context, id string) error
}

func (f *fakeEnrollmentStore) GetByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return enrollment.Enrollment{}, nil
}

func (f *fakeEnrollmentStore) FindByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	if f.findByStudentFn != nil {
		return f.findByStudentFn(ctx, studentID)
	}
	return nil, nil
}

func (f *fakeEnrollmentStore) Update(ctx context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, en)
	}
	return en, nil
}

func (f *fakeEnrollmentStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context) {
	f.calls++
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func TestEnrollHandler(t *testing.T) {
	studentID := newUUID()
	courseID := newUUID()

	body := fmt.Sprintf(`{"studentId": %q, "courseId": %q}`, studentID, courseID)

	tests := []struct {
		name           string
		body           string
		setup          func(*fakeEnroller)
		wantStatusCode int
		wantInvalidate int
	}{
		{
			name: "success",
			body: body,
			setup: func(f *fakeEnroller) {
				f.enrollFn = func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
					return enrollment.Enrollment{
						ID:        newUUID(),
						StudentID: req.StudentID,
						CourseID:  req.CourseID,
					}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
			wantInvalidate: 1,
		},
		{
			name:           "validation_error",
			body:           `{"studentId": "not-a-uuid"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "student_missing",
			body: body,
			setup: func(f *fakeEnroller) {
				f.enrollFn = func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
					return enrollment.Enrollment{}, fmt.Errorf("%w: student %s", user.ErrNotFound, req.StudentID)
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "course_missing",
			body: body,
			setup: func(f *fakeEnroller) {
				f.enrollFn = func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
					return enrollment.Enrollment{}, fmt.Errorf("%w: course %s", course.ErrNotFound, req.CourseID)
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "already_enrolled",
			body: body,
			setup: func(f *fakeEnroller) {
				f.enrollFn = func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
					return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "store_error",
			body: body,
			setup: func(f *fakeEnroller) {
				f.enrollFn = func(ctx context.Context, req enrollment.CreateEnrollmentRequest) (enrollment.Enrollment, error) {
					return enrollment.Enrollment{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEnroller{}

			if tt.setup != nil {
				tt.setup(svc)
			}

			stats := &fakeInvalidator{}
			h := handlers.NewEnrollmentsHandler(svc, &fakeEnrollmentStore{}, stats)

			r := setupRouter(http.MethodPost, "/enrollments", h.Enroll)

			req := httptest.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if stats.calls != tt.wantInvalidate {
				t.Errorf("got %d cache invalidations, want %d", stats.calls, tt.wantInvalidate)
			}
		})
	}
}

func TestListEnrollmentsHandler(t *testing.T) {
	detail := enrollment.Detail{
		Enrollment: enrollment.Enrollment{
			ID:        newUUID(),
			StudentID: newUUID(),
			CourseID:  newUUID(),
		},
		Student: user.User{ID: newUUID(), Username: "jdoe"},
		Course:  course.Course{ID: newUUID(), Title: "Operating Systems"},
	}

	tests := []struct {
		name           string
		url            string
		setup          func(*fakeEnroller)
		wantStatusCode int
		wantCount      int
	}{
		{
			name: "all",
			url:  "/enrollments",
			setup: func(f *fakeEnroller) {
				f.allDetailsFn = func(ctx context.Context) ([]enrollment.Detail, error) {
					return []enrollment.Detail{detail}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      1,
		},
		{
			name: "date_range",
			url:  "/enrollments?startDate=2026-03-01&endDate=2026-03-31",
			setup: func(f *fakeEnroller) {
				f.detailsBetweenFn = func(ctx context.Context, startDate, endDate string) ([]enrollment.Detail, error) {
					if startDate != "2026-03-01" || endDate != "2026-03-31" {
						return nil, errors.New("dates not forwarded")
					}
					return []enrollment.Detail{detail}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      1,
		},
		{
			name: "by_course",
			url:  "/enrollments?courseId=" + detail.Course.ID,
			setup: func(f *fakeEnroller) {
				f.detailsByCourseFn = func(ctx context.Context, courseID string) ([]enrollment.Detail, error) {
					if courseID != detail.Course.ID {
						return nil, errors.New("courseId not forwarded")
					}
					return []enrollment.Detail{detail}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      1,
		},
		{
			name:           "half_open_range",
			url:            "/enrollments?startDate=2026-03-01",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "course_with_date_range",
			url:            "/enrollments?courseId=" + detail.Course.ID + "&startDate=2026-03-01&endDate=2026-03-31",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "unknown_course",
			url:  "/enrollments?courseId=" + newUUID(),
			setup: func(f *fakeEnroller) {
				f.detailsByCourseFn = func(ctx context.Context, courseID string) ([]enrollment.Detail, error) {
					return nil, fmt.Errorf("%w: course %s", course.ErrNotFound, courseID)
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "dangling_reference",
			url:  "/enrollments",
			setup: func(f *fakeEnroller) {
				f.allDetailsFn = func(ctx context.Context) ([]enrollment.Detail, error) {
					return nil, fmt.Errorf("%w: student %s", user.ErrNotFound, newUUID())
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEnroller{}

			if tt.setup != nil {
				tt.setup(svc)
			}

			h := handlers.NewEnrollmentsHandler(svc, &fakeEnrollmentStore{}, &fakeInvalidator{})

			r := setupRouter(http.MethodGet, "/enrollments", h.List)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var resp struct {
				Enrollments []enrollment.Detail `json:"enrollments"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if len(resp.Enrollments) != tt.wantCount {
				t.Errorf("got %d enrollments, want %d", len(resp.Enrollments), tt.wantCount)
			}
		})
	}
}

func TestPatchEnrollmentHandler(t *testing.T) {
	id := newUUID()

	existing := enrollment.Enrollment{
		ID:         id,
		StudentID:  newUUID(),
		CourseID:   newUUID(),
		IsApproved: false,
	}

	store := &fakeEnrollmentStore{
		getFn: func(ctx context.Context, gotID string) (enrollment.Enrollment, error) {
			if gotID != id {
				return enrollment.Enrollment{}, enrollment.ErrNotFound
			}
			return existing, nil
		},
		updateFn: func(ctx context.Context, en enrollment.Enrollment) (enrollment.Enrollment, error) {
			return en, nil
		},
	}

	stats := &fakeInvalidator{}
	h := handlers.NewEnrollmentsHandler(&fakeEnroller{}, store, stats)

	r := setupRouter(http.MethodPatch, "/enrollments/:id", h.Patch)

	req := httptest.NewRequest(http.MethodPatch, "/enrollments/"+id, bytes.NewBufferString(`{"isApproved": true}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var updated enrollment.Enrollment

	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !updated.IsApproved {
		t.Error("expected the approval flag to flip")
	}

	// untouched fields survive the patch
	if updated.StudentID != existing.StudentID || updated.CourseID != existing.CourseID {
		t.Errorf("patch clobbered untouched fields: %+v", updated)
	}

	if stats.calls != 1 {
		t.Errorf("got %d cache invalidations, want 1", stats.calls)
	}
}
