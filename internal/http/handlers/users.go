package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/repo/postgres"
	"github.com/instihub/portal/internal/security"
)

// UserStore is the full user persistence surface the admin endpoints need.
type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	store UserStore
}

func NewUsersHandler(store UserStore) *UsersHandler {
	return &UsersHandler{store: store}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	var filter user.ListUsersFilter

	if role := ctx.Query("role"); role != "" {
		if !user.ValidRole(role) {
			RespondBadRequest(ctx, "Unknown role", gin.H{"role": role})
			return
		}
		filter.Role = &role
	}

	if name := ctx.Query("name"); name != "" {
		filter.Name = &name
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, user.NewFromCreateRequest(req, hash))

	if err != nil {
		if errors.Is(err, postgres.ErrUsernameTaken) {
			RespondBadRequest(ctx, "Username already exists", nil)
			return
		}
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "Email is already in use", nil)
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *UsersHandler) Patch(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Role != nil && !user.ValidRole(*req.Role) {
		RespondBadRequest(ctx, "Unknown role", gin.H{"role": *req.Role})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update user")
		return
	}

	if req.Username != nil {
		existing.Username = *req.Username
	}
	if req.Email != nil {
		existing.Email = *req.Email
	}
	if req.FullName != nil {
		existing.FullName = *req.FullName
	}
	if req.Role != nil {
		existing.Role = *req.Role
	}
	if req.Enabled != nil {
		existing.IsEnabled = *req.Enabled
	}
	if req.Password != nil {
		hash, hashErr := security.HashPassword(*req.Password)

		if hashErr != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		existing.PasswordHash = hash
	}

	updated, err := h.store.Update(cctx, existing)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		if errors.Is(err, postgres.ErrUsernameTaken) {
			RespondBadRequest(ctx, "Username already exists", nil)
			return
		}
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "Email is already in use", nil)
			return
		}
		RespondInternal(ctx, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !validID(ctx, id) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}
