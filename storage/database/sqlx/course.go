package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := repo.getExec(exec).GetContext(ctx, &crs.ID,
		`INSERT INTO course (name, short_name, score_max, contest_count, ok_method, ok_threshold_percent,
		                     is_active, is_open_registration, default_formula, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		crs.Name, crs.ShortName, crs.ScoreMax, crs.ContestCount, crs.OKMethod, crs.OKThresholdPercent,
		crs.IsActive, crs.IsOpenRegistration, crs.DefaultFormula, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo courseRepository) CourseByID(ctx context.Context, id int64, exec ...core.DBExecutor) (course.Course, error) {
	var crs course.Course
	err := repo.getExec(exec).GetContext(ctx, &crs, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by id")
	}
	return crs, nil
}

func (repo courseRepository) CourseByShortName(ctx context.Context, shortName string, exec ...core.DBExecutor) (course.Course, error) {
	var crs course.Course
	err := repo.getExec(exec).GetContext(ctx, &crs, `SELECT * FROM course WHERE short_name = $1`, shortName)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by short name")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	query := `SELECT * FROM course`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY short_name`
	if err := repo.getExec(exec).SelectContext(ctx, &courses, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	err := repo.getExec(exec).GetContext(ctx, &crs,
		`UPDATE course SET name = $2, score_max = $3, contest_count = $4, ok_method = $5,
		        ok_threshold_percent = $6, is_active = $7, is_open_registration = $8,
		        default_formula = $9, updated_at = $10
		 WHERE id = $1 RETURNING *`,
		crs.ID, crs.Name, crs.ScoreMax, crs.ContestCount, crs.OKMethod,
		crs.OKThresholdPercent, crs.IsActive, crs.IsOpenRegistration,
		crs.DefaultFormula, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "updating course")
	}
	return crs, nil
}

func (repo courseRepository) CreateContest(ctx context.Context, cnt course.Contest, exec ...core.DBExecutor) (course.Contest, error) {
	err := repo.getExec(exec).GetContext(ctx, &cnt.ID,
		`INSERT INTO contest (course_id, yandex_contest_id, lecture, tasks_count, score_max, deadline,
		                      tags, default_formula, name_format, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		cnt.CourseID, cnt.YandexContestID, cnt.LectureNumber, cnt.TasksCount, cnt.ScoreMax, cnt.Deadline,
		cnt.Tags, cnt.DefaultFormula, cnt.NameFormat, cnt.CreatedAt, cnt.UpdatedAt,
	)
	if err != nil {
		return course.Contest{}, errors.Wrap(err, "creating contest")
	}
	return cnt, nil
}

func (repo courseRepository) ContestByID(ctx context.Context, id int64, exec ...core.DBExecutor) (course.Contest, error) {
	var cnt course.Contest
	err := repo.getExec(exec).GetContext(ctx, &cnt, `SELECT * FROM contest WHERE id = $1`, id)
	if err != nil {
		return course.Contest{}, repo.trapNoRowsErr(err, "getting contest by id")
	}
	return cnt, nil
}

func (repo courseRepository) CourseContests(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]course.Contest, error) {
	contests := make([]course.Contest, 0)
	err := repo.getExec(exec).SelectContext(ctx, &contests,
		`SELECT * FROM contest WHERE course_id = $1 ORDER BY lecture, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course contests")
	}
	return contests, nil
}

func (repo courseRepository) UpdateContest(ctx context.Context, cnt course.Contest, exec ...core.DBExecutor) (course.Contest, error) {
	err := repo.getExec(exec).GetContext(ctx, &cnt,
		`UPDATE contest SET lecture = $2, tasks_count = $3, score_max = $4, deadline = $5,
		        tags = $6, default_formula = $7, name_format = $8, updated_at = $9
		 WHERE id = $1 RETURNING *`,
		cnt.ID, cnt.LectureNumber, cnt.TasksCount, cnt.ScoreMax, cnt.Deadline,
		cnt.Tags, cnt.DefaultFormula, cnt.NameFormat, cnt.UpdatedAt,
	)
	if err != nil {
		return course.Contest{}, repo.trapNoRowsErr(err, "updating contest")
	}
	return cnt, nil
}

func (repo courseRepository) CreateTask(ctx context.Context, tsk course.Task, exec ...core.DBExecutor) (course.Task, error) {
	err := repo.getExec(exec).GetContext(ctx, &tsk.ID,
		`INSERT INTO task (contest_id, external_task_id, alias, is_zero_ok, score_max, formula, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		tsk.ContestID, tsk.ExternalTaskID, tsk.Alias, tsk.IsZeroOK, tsk.ScoreMax, tsk.Formula, tsk.CreatedAt, tsk.UpdatedAt,
	)
	if err != nil {
		return course.Task{}, errors.Wrap(err, "creating task")
	}
	return tsk, nil
}

func (repo courseRepository) ContestTasks(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]course.Task, error) {
	tasks := make([]course.Task, 0)
	err := repo.getExec(exec).SelectContext(ctx, &tasks,
		`SELECT * FROM task WHERE contest_id = $1 ORDER BY alias`, contestID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contest tasks")
	}
	return tasks, nil
}

func (repo courseRepository) TaskByAlias(ctx context.Context, contestID int64, alias string, exec ...core.DBExecutor) (course.Task, error) {
	var tsk course.Task
	err := repo.getExec(exec).GetContext(ctx, &tsk,
		`SELECT * FROM task WHERE contest_id = $1 AND alias = $2`, contestID, alias)
	if err != nil {
		return course.Task{}, repo.trapNoRowsErr(err, "getting task by alias")
	}
	return tsk, nil
}

func (repo courseRepository) CreateCourseLevel(ctx context.Context, lvl course.CourseLevel, exec ...core.DBExecutor) (course.CourseLevel, error) {
	err := repo.getExec(exec).GetContext(ctx, &lvl.ID,
		`INSERT INTO course_level (course_id, name, ok_method, count_method, ok_threshold, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		lvl.CourseID, lvl.Name, lvl.OKMethod, lvl.CountMethod, lvl.OKThreshold, lvl.CreatedAt, lvl.UpdatedAt,
	)
	if err != nil {
		return course.CourseLevel{}, errors.Wrap(err, "creating course level")
	}
	return lvl, nil
}

func (repo courseRepository) CourseLevels(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]course.CourseLevel, error) {
	levels := make([]course.CourseLevel, 0)
	err := repo.getExec(exec).SelectContext(ctx, &levels,
		`SELECT * FROM course_level WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course levels")
	}
	return levels, nil
}

func (repo courseRepository) CreateContestLevel(ctx context.Context, lvl course.ContestLevel, exec ...core.DBExecutor) (course.ContestLevel, error) {
	err := repo.getExec(exec).GetContext(ctx, &lvl.ID,
		`INSERT INTO contest_level (contest_id, name, ok_method, count_method, ok_threshold, include_after_deadline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		lvl.ContestID, lvl.Name, lvl.OKMethod, lvl.CountMethod, lvl.OKThreshold, lvl.IncludeAfterDeadline, lvl.CreatedAt, lvl.UpdatedAt,
	)
	if err != nil {
		return course.ContestLevel{}, errors.Wrap(err, "creating contest level")
	}
	return lvl, nil
}

func (repo courseRepository) ContestLevels(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]course.ContestLevel, error) {
	levels := make([]course.ContestLevel, 0)
	err := repo.getExec(exec).SelectContext(ctx, &levels,
		`SELECT * FROM contest_level WHERE contest_id = $1 ORDER BY id`, contestID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contest levels")
	}
	return levels, nil
}
