package course

import (
	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateCourseRequest) Course {
	capacity := req.MaxCapacity

	if capacity == 0 {
		capacity = DefaultMaxCapacity
	}

	enabled := true

	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return Course{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Level:        req.Level,
		InstructorID: req.InstructorID,
		MaxCapacity:  capacity,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		IsEnabled:    enabled,
	}
}

// ApplyPatch folds the non-nil fields of a patch into an existing course.

func ApplyPatch(existing Course, req UpdateCourseRequest) Course {
	if req.Title != nil {
		existing.Title = *req.Title
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Category != nil {
		existing.Category = *req.Category
	}

	if req.Level != nil {
		existing.Level = *req.Level
	}

	if req.InstructorID != nil {
		existing.InstructorID = *req.InstructorID
	}

	if req.MaxCapacity != nil {
		existing.MaxCapacity = *req.MaxCapacity
	}

	if req.StartDate != nil {
		existing.StartDate = *req.StartDate
	}

	if req.EndDate != nil {
		existing.EndDate = *req.EndDate
	}

	if req.Enabled != nil {
		existing.IsEnabled = *req.Enabled
	}

	return existing
}
