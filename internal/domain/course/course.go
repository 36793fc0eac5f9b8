package course

import (
	"errors"
)

const DefaultMaxCapacity = 30

// Dates carry no time component; they are stored as calendar days and
// rendered as YYYY-MM-DD on the wire (see DateOnly).
type Course struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Level        string   `json:"level,omitempty"`
	InstructorID string   `json:"instructorId"`
	MaxCapacity  int      `json:"maxCapacity"`
	StartDate    DateOnly `json:"startDate"`
	EndDate      DateOnly `json:"endDate"`
	IsEnabled    bool     `json:"isEnabled"`
}

var ErrNotFound = errors.New("course not found")

type CreateCourseRequest struct {
	Title        string   `json:"title" binding:"required,min=3,max=100"`
	Description  string   `json:"description" binding:"omitempty,max=2000"`
	Category     string   `json:"category" binding:"omitempty,max=50"`
	Level        string   `json:"level" binding:"omitempty,max=30"`
	InstructorID string   `json:"instructorId" binding:"required,uuid"`
	MaxCapacity  int      `json:"maxCapacity" binding:"omitempty,min=1,max=50000"`
	StartDate    DateOnly `json:"startDate"`
	EndDate      DateOnly `json:"endDate"`
	Enabled      *bool    `json:"isEnabled"`
}

// a patch payload: nil pointers leave the stored value alone
type UpdateCourseRequest struct {
	Title        *string   `json:"title" binding:"omitempty,min=3,max=100"`
	Description  *string   `json:"description" binding:"omitempty,max=2000"`
	Category     *string   `json:"category" binding:"omitempty,max=50"`
	Level        *string   `json:"level" binding:"omitempty,max=30"`
	InstructorID *string   `json:"instructorId" binding:"omitempty,uuid"`
	MaxCapacity  *int      `json:"maxCapacity" binding:"omitempty,min=1,max=50000"`
	StartDate    *DateOnly `json:"startDate"`
	EndDate      *DateOnly `json:"endDate"`
	Enabled      *bool     `json:"isEnabled"`
}

// with pointers if optional, it will be nil
type ListCoursesFilter struct {
	Category *string
	Level    *string
	Query    *string
}

// TopCourse is one row of the enrollment ranking.
type TopCourse struct {
	CourseID        string `json:"courseId"`
	Title           string `json:"title"`
	EnrollmentCount int64  `json:"enrollmentCount"`
}
