package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instihub/portal/internal/domain/course"
	"github.com/instihub/portal/internal/observability"
)

type CoursesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCoursesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CoursesRepo {
	return &CoursesRepo{pool: pool, prom: prom}
}

func (r *CoursesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const courseColumns = `id, title, description, category, level, instructor_id, max_capacity, start_date, end_date, is_enabled`

func scanCourse(row pgx.Row) (course.Course, error) {
	var c course.Course

	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Level, &c.InstructorID,
		&c.MaxCapacity, &c.StartDate.Time, &c.EndDate.Time, &c.IsEnabled)

	return c, err
}

func (r *CoursesRepo) Create(ctx context.Context, c course.Course) (created course.Course, err error) {
	err = r.observe("courses.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO courses (id, title, description, category, level, instructor_id, max_capacity, start_date, end_date, is_enabled)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			c.ID, c.Title, c.Description, c.Category, c.Level, c.InstructorID,
			c.MaxCapacity, c.StartDate.Time, c.EndDate.Time, c.IsEnabled,
		)
		return e
	})

	if err != nil {
		return
	}

	created = c
	return
}

func (r *CoursesRepo) GetByID(ctx context.Context, id string) (found course.Course, err error) {
	var c course.Course

	err = r.observe("courses.get_by_id", func() error {
		var e error
		c, e = scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = course.ErrNotFound
		}

		return
	}

	found = c
	return
}

func (r *CoursesRepo) ExistsByID(ctx context.Context, id string) (exists bool, err error) {
	err = r.observe("courses.exists_by_id", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM courses WHERE id = $1)`, id).Scan(&exists)
	})
	return
}

// List applies the optional category/level/title filters; nil fields are
// skipped. Title matching is a case-insensitive substring.

func (r *CoursesRepo) List(ctx context.Context, filter course.ListCoursesFilter) (courses []course.Course, err error) {
	baseQuery := `SELECT ` + courseColumns + ` FROM courses`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Category != nil {
		conds = append(conds, fmt.Sprintf("category = $%d", argsPosition))
		args = append(args, *filter.Category)
		argsPosition++
	}

	if filter.Level != nil {
		conds = append(conds, fmt.Sprintf("level = $%d", argsPosition))
		args = append(args, *filter.Level)
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", argsPosition))
		args = append(args, "%"+*filter.Query+"%")
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering
	query += " ORDER BY title ASC, id ASC"

	var rows pgx.Rows

	err = r.observe("courses.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	courses = make([]course.Course, 0)

	for rows.Next() {
		var c course.Course

		e := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Level, &c.InstructorID,
			&c.MaxCapacity, &c.StartDate.Time, &c.EndDate.Time, &c.IsEnabled)

		if e != nil {
			err = e
			return
		}
		courses = append(courses, c)
	}

	err = rows.Err()
	return
}

func (r *CoursesRepo) Update(ctx context.Context, c course.Course) (updated course.Course, err error) {
	err = r.observe("courses.update", func() error {
		var e error
		updated, e = scanCourse(r.pool.QueryRow(ctx,
			`UPDATE courses
				SET title = $2,
						description = $3,
						category = $4,
						level = $5,
						instructor_id = $6,
						max_capacity = $7,
						start_date = $8,
						end_date = $9,
						is_enabled = $10
			WHERE id = $1
			RETURNING `+courseColumns,
			c.ID, c.Title, c.Description, c.Category, c.Level, c.InstructorID,
			c.MaxCapacity, c.StartDate.Time, c.EndDate.Time, c.IsEnabled,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = course.ErrNotFound
		}
	}

	return
}

func (r *CoursesRepo) Delete(ctx context.Context, id string) (err error) {
	err = r.observe("courses.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return course.ErrNotFound
		}

		return nil
	})

	return
}

func (r *CoursesRepo) CountByEnabled(ctx context.Context, enabled bool) (total int64, err error) {
	err = r.observe("courses.count_by_enabled", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE is_enabled = $1`, enabled).Scan(&total)
	})
	return
}

// TopCourses ranks enabled courses by enrollment count. The left join keeps
// zero-enrollment courses in the ranking; equal counts order by course id.

func (r *CoursesRepo) TopCourses(ctx context.Context, limit int) (top []course.TopCourse, err error) {
	var rows pgx.Rows

	err = r.observe("courses.top_courses", func() error {
		var e error
		rows, e = r.pool.Query(ctx, `
			SELECT c.id, c.title, COUNT(e.id) AS enrollment_count
			FROM courses c
			LEFT JOIN enrollments e ON c.id = e.course_id
			WHERE c.is_enabled = TRUE
			GROUP BY c.id, c.title
			ORDER BY COUNT(e.id) DESC, c.id ASC
			LIMIT $1
		`, limit)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	top = make([]course.TopCourse, 0, limit)

	for rows.Next() {
		var t course.TopCourse

		e := rows.Scan(&t.CourseID, &t.Title, &t.EnrollmentCount)

		if e != nil {
			err = e
			return
		}
		top = append(top, t)
	}

	err = rows.Err()
	return
}
