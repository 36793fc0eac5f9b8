package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FullName     string    `json:"fullName"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	IsEnabled    bool      `json:"isEnabled"`
}

var ErrNotFound = errors.New("user not found")

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=60"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName" binding:"omitempty,max=120"`
	Role     string `json:"role" binding:"omitempty,oneof=STUDENT INSTRUCTOR ADMIN"`
	Enabled  *bool  `json:"isEnabled"`
}

// a patch payload: a nil pointer leaves the stored value alone.
// JSON null and an absent key are treated the same way here.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=60"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	FullName *string `json:"fullName" binding:"omitempty,max=120"`
	Role     *string `json:"role" binding:"omitempty,oneof=STUDENT INSTRUCTOR ADMIN"`
	Enabled  *bool   `json:"isEnabled"`
}

// with pointers if optional, it will be nil
type ListUsersFilter struct {
	Role *string
	Name *string
}

// A factory to build a User from the incoming DTO. The password hash is
// supplied by the caller so the raw password never reaches the domain.

func NewFromCreateRequest(req CreateUserRequest, passwordHash string) User {
	role := req.Role

	if role == "" {
		role = RoleStudent
	}

	fullName := req.FullName

	if fullName == "" {
		fullName = "Default Name"
	}

	enabled := true

	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	return User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		CreatedAt:    time.Now(),
		IsEnabled:    enabled,
	}
}

func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}

	return false
}
