package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instihub/portal/internal/domain/enrollment"
	"github.com/instihub/portal/internal/observability"
)

type EnrollmentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEnrollmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EnrollmentsRepo {
	return &EnrollmentsRepo{pool: pool, prom: prom}
}

func (repo *EnrollmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

const enrollmentColumns = `id, student_id, course_id, enrolled_at, is_approved`

func scanEnrollment(row pgx.Row) (enrollment.Enrollment, error) {
	var en enrollment.Enrollment

	err := row.Scan(&en.ID, &en.StudentID, &en.CourseID, &en.EnrolledAt, &en.IsApproved)

	return en, err
}

// Create inserts the record; the uniqueness index on (student_id, course_id)
// backstops the service-level duplicate check, so a 23505 surfaces as the
// same conflict error the check would have produced.

func (repo *EnrollmentsRepo) Create(ctx context.Context, en enrollment.Enrollment) (created enrollment.Enrollment, err error) {
	err = repo.observe("enrollments.create", func() error {
		_, e := repo.pool.Exec(ctx, `
			INSERT INTO enrollments (id, student_id, course_id, enrolled_at, is_approved)
			VALUES ($1,$2,$3,$4,$5)
		`, en.ID, en.StudentID, en.CourseID, en.EnrolledAt, en.IsApproved)
		return e
	})

	if err != nil {
		if uniqueViolationOn(err, "enrollments_student_course_uniq") {
			err = enrollment.ErrAlreadyEnrolled
		}
		return
	}

	created = en
	return
}

func (repo *EnrollmentsRepo) GetByID(ctx context.Context, id string) (found enrollment.Enrollment, err error) {
	var en enrollment.Enrollment

	err = repo.observe("enrollments.get_by_id", func() error {
		var e error
		en, e = scanEnrollment(repo.pool.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = enrollment.ErrNotFound
		}

		return
	}

	found = en
	return
}

func (repo *EnrollmentsRepo) list(ctx context.Context, op, query string, args ...interface{}) (enrollments []enrollment.Enrollment, err error) {
	var rows pgx.Rows

	err = repo.observe(op, func() error {
		var e error
		rows, e = repo.pool.Query(ctx, query, args...)
		return e
	})

	if err != nil {
		return
	}

	defer rows.Close()

	enrollments = make([]enrollment.Enrollment, 0)

	for rows.Next() {
		var en enrollment.Enrollment

		e := rows.Scan(&en.ID, &en.StudentID, &en.CourseID, &en.EnrolledAt, &en.IsApproved)

		if e != nil {
			err = e
			return
		}
		enrollments = append(enrollments, en)
	}

	err = rows.Err()
	return
}

func (repo *EnrollmentsRepo) List(ctx context.Context) ([]enrollment.Enrollment, error) {
	return repo.list(ctx, "enrollments.list",
		`SELECT `+enrollmentColumns+` FROM enrollments ORDER BY enrolled_at ASC, id ASC`)
}

func (repo *EnrollmentsRepo) FindByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	return repo.list(ctx, "enrollments.find_by_student",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at ASC, id ASC`,
		studentID)
}

func (repo *EnrollmentsRepo) FindByCourse(ctx context.Context, courseID string) ([]enrollment.Enrollment, error) {
	return repo.list(ctx, "enrollments.find_by_course",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 ORDER BY enrolled_at ASC, id ASC`,
		courseID)
}

// FindByStudentAndCourse is an exact-pair lookup used by the duplicate check.

func (repo *EnrollmentsRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (found enrollment.Enrollment, err error) {
	var en enrollment.Enrollment

	err = repo.observe("enrollments.find_by_student_and_course", func() error {
		var e error
		en, e = scanEnrollment(repo.pool.QueryRow(ctx,
			`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = $1 AND course_id = $2`,
			studentID, courseID))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = enrollment.ErrNotFound
		}

		return
	}

	found = en
	return
}

// FindBetween returns enrollments whose timestamp falls inside the closed
// interval [from, to].

func (repo *EnrollmentsRepo) FindBetween(ctx context.Context, from, to time.Time) ([]enrollment.Enrollment, error) {
	return repo.list(ctx, "enrollments.find_between",
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE enrolled_at BETWEEN $1 AND $2
		 ORDER BY enrolled_at ASC, id ASC`,
		from, to)
}

func (repo *EnrollmentsRepo) Update(ctx context.Context, en enrollment.Enrollment) (updated enrollment.Enrollment, err error) {
	err = repo.observe("enrollments.update", func() error {
		var e error
		updated, e = scanEnrollment(repo.pool.QueryRow(ctx,
			`UPDATE enrollments
				SET student_id = $2,
						course_id = $3,
						is_approved = $4
			WHERE id = $1
			RETURNING `+enrollmentColumns,
			en.ID, en.StudentID, en.CourseID, en.IsApproved,
		))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = enrollment.ErrNotFound
			return
		}

		if uniqueViolationOn(err, "enrollments_student_course_uniq") {
			err = enrollment.ErrAlreadyEnrolled
		}
	}

	return
}

func (repo *EnrollmentsRepo) Delete(ctx context.Context, id string) (err error) {
	err = repo.observe("enrollments.delete", func() error {
		tag, e := repo.pool.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return enrollment.ErrNotFound
		}

		return nil
	})

	return
}

func (repo *EnrollmentsRepo) CountByApproved(ctx context.Context, approved bool) (total int64, err error) {
	err = repo.observe("enrollments.count_by_approved", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM enrollments WHERE is_approved = $1`, approved).Scan(&total)
	})
	return
}
