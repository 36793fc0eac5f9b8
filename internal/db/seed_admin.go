package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instihub/portal/internal/config"
	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/security"
)

func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, cfg.AdminUsername).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	email := cfg.AdminEmail

	if email == "" {
		email = cfg.AdminUsername + "@localhost"
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, role, created_at, is_enabled)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE)`,
		uuid.NewString(), cfg.AdminUsername, email, hash, "Portal Admin", user.RoleAdmin, time.Now(),
	)

	return err
}
