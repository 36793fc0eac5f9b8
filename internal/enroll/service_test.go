package enroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/repo/memory"
)

type fixture struct {
	users       *memory.UsersRepo
	courses     *memory.CoursesRepo
	enrollments *memory.EnrollmentsRepo
	svc         *Service
}

func newFixture() *fixture {
	users := memory.NewUsersRepo()
	courses := memory.NewCoursesRepo()
	enrollments := memory.NewEnrollmentsRepo()

	return &fixture{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		svc:         NewService(users, courses, enrollments),
	}
}

func (f *fixture) addStudent(t *testing.T) user.User {
	t.Helper()

	u := user.User{
		ID:        uuid.NewString(),
		Username:  "student-" + uuid.NewString()[:8],
		Email:     uuid.NewString()[:8] + "@example.com",
		FullName:  "Test Student",
		Role:      user.RoleStudent,
		IsEnabled: true,
	}

	_, err := f.users.Create(context.Background(), u)

	if err != nil {
		t.Fatalf("seed student: %v", err)
	}

	return u
}

func (f *fixture) addCourse(t *testing.T) course.Course {
	t.Helper()

	c := course.Course{
		ID:          uuid.NewString(),
		Title:       "Intro to Databases",
		MaxCapacity: course.DefaultMaxCapacity,
		IsEnabled:   true,
	}

	_, err := f.courses.Create(context.Background(), c)

	if err != nil {
		t.Fatalf("seed course: %v", err)
	}

	return c
}

func TestEnrollCreatesTimestampedEnrollment(t *testing.T) {
	f := newFixture()
	student := f.addStudent(t)
	c := f.addCourse(t)

	before := time.Now()

	created, err := f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
		StudentID: student.ID,
		CourseID:  c.ID,
	})

	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	if created.ID == "" {
		t.Error("expected an id to be assigned")
	}

	if created.IsApproved {
		t.Error("new enrollments must start unapproved")
	}

	if created.EnrolledAt.Before(before) || created.EnrolledAt.After(time.Now()) {
		t.Errorf("EnrolledAt %v outside the call window", created.EnrolledAt)
	}
}

func TestEnrollErrorPrecedence(t *testing.T) {
	f := newFixture()
	student := f.addStudent(t)
	c := f.addCourse(t)

	missingID := uuid.NewString()

	tests := []struct {
		name      string
		studentID string
		courseID  string
		wantErr   error
	}{
		// the student check always wins, even when the course is missing too
		{"both missing", missingID, uuid.NewString(), user.ErrNotFound},
		{"student missing", missingID, c.ID, user.ErrNotFound},
		{"course missing", student.ID, uuid.NewString(), course.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
				StudentID: tc.studentID,
				CourseID:  tc.courseID,
			})

			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestEnrollRejectsDuplicatePair(t *testing.T) {
	f := newFixture()
	student := f.addStudent(t)
	c := f.addCourse(t)

	req := enrollment.CreateEnrollmentRequest{StudentID: student.ID, CourseID: c.ID}

	_, err := f.svc.Enroll(context.Background(), req)

	if err != nil {
		t.Fatalf("first Enroll: %v", err)
	}

	_, err = f.svc.Enroll(context.Background(), req)

	if !errors.Is(err, enrollment.ErrAlreadyEnrolled) {
		t.Fatalf("second Enroll: got %v, want ErrAlreadyEnrolled", err)
	}

	// a second course for the same student is still fine
	other := f.addCourse(t)

	_, err = f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
		StudentID: student.ID,
		CourseID:  other.ID,
	})

	if err != nil {
		t.Fatalf("enroll on a different course: %v", err)
	}
}

func TestAllDetailsInlinesStudentAndCourse(t *testing.T) {
	f := newFixture()
	student := f.addStudent(t)
	c := f.addCourse(t)

	created, err := f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
		StudentID: student.ID,
		CourseID:  c.ID,
	})

	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	details, err := f.svc.AllDetails(context.Background())

	if err != nil {
		t.Fatalf("AllDetails: %v", err)
	}

	if len(details) != 1 {
		t.Fatalf("got %d details, want 1", len(details))
	}

	d := details[0]

	if d.ID != created.ID {
		t.Errorf("detail id %q, want %q", d.ID, created.ID)
	}

	if d.Student.ID != student.ID || d.Student.Username != student.Username {
		t.Errorf("student not inlined: %+v", d.Student)
	}

	if d.Course.ID != c.ID || d.Course.Title != c.Title {
		t.Errorf("course not inlined: %+v", d.Course)
	}
}

func TestAllDetailsFailsFastOnDanglingStudent(t *testing.T) {
	f := newFixture()
	student := f.addStudent(t)
	c := f.addCourse(t)

	_, err := f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
		StudentID: student.ID,
		CourseID:  c.ID,
	})

	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// removing the student leaves a dangling reference behind
	if err := f.users.Delete(context.Background(), student.ID); err != nil {
		t.Fatalf("delete student: %v", err)
	}

	details, err := f.svc.AllDetails(context.Background())

	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("got %v, want user.ErrNotFound", err)
	}

	if details != nil {
		t.Errorf("expected no partial result, got %d details", len(details))
	}
}

func TestDetailsByCourseReturnsOneRoster(t *testing.T) {
	f := newFixture()
	target := f.addCourse(t)
	other := f.addCourse(t)

	for _, c := range []course.Course{target, target, other} {
		student := f.addStudent(t)

		_, err := f.svc.Enroll(context.Background(), enrollment.CreateEnrollmentRequest{
			StudentID: student.ID,
			CourseID:  c.ID,
		})

		if err != nil {
			t.Fatalf("Enroll: %v", err)
		}
	}

	details, err := f.svc.DetailsByCourse(context.Background(), target.ID)

	if err != nil {
		t.Fatalf("DetailsByCourse: %v", err)
	}

	if len(details) != 2 {
		t.Fatalf("got %d details, want 2", len(details))
	}

	for _, d := range details {
		if d.Course.ID != target.ID {
			t.Errorf("foreign course in roster: %q", d.Course.ID)
		}
	}
}

func TestDetailsByCourseUnknownCourse(t *testing.T) {
	f := newFixture()

	_, err := f.svc.DetailsByCourse(context.Background(), uuid.NewString())

	if !errors.Is(err, course.ErrNotFound) {
		t.Fatalf("got %v, want course.ErrNotFound", err)
	}
}

func TestDetailsBetweenClipsToCalendarDays(t *testing.T) {
	f := newFixture()
	c := f.addCourse(t)

	// three enrollments on distinct days, inserted out of order
	days := []time.Time{
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local),
		time.Date(2026, 3, 12, 23, 30, 0, 0, time.Local),
		time.Date(2026, 3, 15, 0, 0, 1, 0, time.Local),
	}

	ids := make([]string, len(days))

	for i, day := range days {
		student := f.addStudent(t)

		en := enrollment.Enrollment{
			ID:         uuid.NewString(),
			StudentID:  student.ID,
			CourseID:   c.ID,
			EnrolledAt: day,
		}

		if _, err := f.enrollments.Create(context.Background(), en); err != nil {
			t.Fatalf("seed enrollment: %v", err)
		}

		ids[i] = en.ID
	}

	details, err := f.svc.DetailsBetween(context.Background(), "2026-03-10", "2026-03-12")

	if err != nil {
		t.Fatalf("DetailsBetween: %v", err)
	}

	if len(details) != 2 {
		t.Fatalf("got %d details, want 2", len(details))
	}

	// results come back ordered by enrollment time
	if details[0].ID != ids[0] || details[1].ID != ids[1] {
		t.Errorf("wrong rows or order: %q then %q", details[0].ID, details[1].ID)
	}
}

func TestDetailsBetweenRejectsBadInput(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name      string
		startDate string
		endDate   string
	}{
		{"malformed start", "10-03-2026", "2026-03-12"},
		{"inverted range", "2026-03-12", "2026-03-10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.DetailsBetween(context.Background(), tc.startDate, tc.endDate)

			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
