package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instihub/portal/internal/domain/user"
	"github.com/instihub/portal/internal/observability"
)

var (
	ErrUsernameTaken    = errors.New("username already in use")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const userColumns = `id, username, email, password_hash, full_name, role, created_at, is_enabled`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.IsEnabled)

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (created user.User, err error) {
	err = r.observe("users.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, full_name, role, created_at, is_enabled)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.CreatedAt, u.IsEnabled,
		)
		return e
	})

	if err != nil {
		if uniqueViolationOn(err, "users_username_uniq") {
			err = ErrUsernameTaken
			return
		}

		if uniqueViolationOn(err, "users_email_uniq") {
			err = ErrEmailAlreadyUsed
			return
		}

		return
	}

	created = u
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (found user.User, err error) {
	var u user.User

	err = r.observe("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}

		return
	}

	found = u
	return
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (found user.User, err error) {
	var u user.User

	err = r.observe("users.get_by_username", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}

		return
	}

	found = u
	return
}

func (r *UsersRepo) ExistsByID(ctx context.Context, id string) (exists bool, err error) {
	err = r.observe("users.exists_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	})
	return
}

// List applies the optional role/name filters; a nil filter field is skipped.
// Name matching is a case-insensitive substring over full_name.

func (r *UsersRepo) List(ctx context.Context, filter user.ListUsersFilter) (users []user.User, err error) {
	baseQuery := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Role != nil {
		conds = append(conds, fmt.Sprintf("role = $%d", argsPosition))
		args = append(args, *filter.Role)
		argsPosition++
	}

	if filter.Name != nil {
		conds = append(conds, fmt.Sprintf("full_name ILIKE $%d", argsPosition))
		args = append(args, "%"+*filter.Name+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering
	query += " ORDER BY created_at ASC, id ASC"

	var rows pgx.Rows

	err = r.observe("users.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		var u user.User

		e := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.CreatedAt, &u.IsEnabled)

		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) (updated user.User, err error) {
	err = r.observe("users.update", func() error {
		var e error
		updated, e = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET username = $2,
						email = $3,
						password_hash = $4,
						full_name = $5,
						role = $6,
						is_enabled = $7
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsEnabled,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
			return
		}

		if uniqueViolationOn(err, "users_username_uniq") {
			err = ErrUsernameTaken
			return
		}

		if uniqueViolationOn(err, "users_email_uniq") {
			err = ErrEmailAlreadyUsed
			return
		}
	}

	return
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (err error) {
	err = r.observe("users.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})

	return
}

func (r *UsersRepo) CountByRoleAndEnabled(ctx context.Context, role string, enabled bool) (total int64, err error) {
	err = r.observe("users.count_by_role_enabled", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM users WHERE role = $1 AND is_enabled = $2`,
			role, enabled,
		).Scan(&total)
	})
	return
}
