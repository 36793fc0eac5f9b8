package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/domain/user"
)

type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	CourseID   string    `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
	IsApproved bool      `json:"isApproved"`
}

// if the student already holds an enrollment for the course.
var ErrAlreadyEnrolled = errors.New("enrollment already exists")

var ErrNotFound = errors.New("enrollment not found")

type CreateEnrollmentRequest struct {
	StudentID string `json:"studentId" binding:"required,uuid"`
	CourseID  string `json:"courseId" binding:"required,uuid"`
}

// a patch payload: nil pointers leave the stored value alone
type UpdateEnrollmentRequest struct {
	StudentID *string `json:"studentId" binding:"omitempty,uuid"`
	CourseID  *string `json:"courseId" binding:"omitempty,uuid"`
	Approved  *bool   `json:"isApproved"`
}

// Detail is an enrollment with its referenced student and course inlined.
type Detail struct {
	Enrollment
	Student user.User     `json:"student"`
	Course  course.Course `json:"course"`
}

// A factory to build an Enrollment from the incoming DTO. The enrollment
// timestamp is fixed here, after the integrity checks have passed.

func NewFromCreateRequest(req CreateEnrollmentRequest) Enrollment {
	return Enrollment{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		EnrolledAt: time.Now(),
		IsApproved: false,
	}
}
