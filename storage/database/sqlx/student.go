package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/student"
)

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to student.ErrNotFound
func (repo studentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return student.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckLoginUniqueness(ctx context.Context, login, contestLogin string, exec ...core.DBExecutor) error {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM student WHERE login = $1 OR contest_login = $2)`,
		login, contestLogin,
	)
	if err != nil {
		return errors.Wrap(err, "checking login uniqueness")
	}
	if exists {
		return student.ErrStudentExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	err := repo.getExec(exec).GetContext(ctx, &std.ID,
		`INSERT INTO student (login, full_name, contest_login, telegram_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		std.Login, std.FullName, std.ContestLogin, std.TelegramID, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int64, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).GetContext(ctx, &std, `SELECT * FROM student WHERE id = $1`, id)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student by id")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByLogin(ctx context.Context, login string, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).GetContext(ctx, &std, `SELECT * FROM student WHERE login = $1`, login)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student by login")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByContestLogin(ctx context.Context, contestLogin string, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).GetContext(ctx, &std,
		`SELECT * FROM student WHERE lower(contest_login) = lower($1)`, contestLogin)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "getting student by contest login")
	}
	return std, nil
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, error) {
	students := make([]student.Student, 0)
	query := `SELECT * FROM student`
	args := make([]interface{}, 0, 1)
	if filter.Search != "" {
		query += ` WHERE login ILIKE $1 OR full_name ILIKE $1 OR contest_login ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY login`
	if err := repo.getExec(exec).SelectContext(ctx, &students, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return students, nil
}

func (repo studentRepository) UpdateStudentContestLogin(ctx context.Context, id int64, contestLogin string, exec ...core.DBExecutor) (student.Student, error) {
	var std student.Student
	err := repo.getExec(exec).GetContext(ctx, &std,
		`UPDATE student SET contest_login = $2, updated_at = now() WHERE id = $1 RETURNING *`,
		id, contestLogin,
	)
	if err != nil {
		return student.Student{}, repo.trapNoRowsErr(err, "updating contest login")
	}
	return std, nil
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids []int64, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	ex := repo.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting students")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
