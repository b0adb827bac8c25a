package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

type (
	// resultsRepository implements results.Repository on a fixed executor;
	// the store binds it to the pool, sessions bind it to their transaction.
	resultsRepository struct {
		exec core.DBExecutor
	}

	resultsStore struct {
		resultsRepository
		db core.DB
	}

	resultsSession struct {
		resultsRepository
		tx *sqlx.Tx
	}
)

var (
	_ results.Store   = (*resultsStore)(nil)
	_ results.Session = (*resultsSession)(nil)
)

func NewResultsStore(db core.DB) *resultsStore {
	return &resultsStore{resultsRepository: resultsRepository{exec: db}, db: db}
}

func (st *resultsStore) Begin(ctx context.Context) (results.Session, error) {
	tx, err := st.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	return &resultsSession{resultsRepository: resultsRepository{exec: tx}, tx: tx}, nil
}

func (s *resultsSession) Commit() error   { return s.tx.Commit() }
func (s *resultsSession) Rollback() error { return s.tx.Rollback() }

func (repo resultsRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return results.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// --- course structure (read-only) ---

func (repo resultsRepository) CourseContests(ctx context.Context, courseID int64) ([]course.Contest, error) {
	contests := make([]course.Contest, 0)
	err := repo.exec.SelectContext(ctx, &contests,
		`SELECT * FROM contest WHERE course_id = $1 ORDER BY lecture, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course contests")
	}
	return contests, nil
}

func (repo resultsRepository) ContestTasks(ctx context.Context, contestID int64) ([]course.Task, error) {
	tasks := make([]course.Task, 0)
	err := repo.exec.SelectContext(ctx, &tasks,
		`SELECT * FROM task WHERE contest_id = $1 ORDER BY alias`, contestID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contest tasks")
	}
	return tasks, nil
}

func (repo resultsRepository) TaskByExternalID(ctx context.Context, contestID int64, externalTaskID string) (course.Task, error) {
	var tsk course.Task
	err := repo.exec.GetContext(ctx, &tsk,
		`SELECT * FROM task WHERE contest_id = $1 AND external_task_id = $2`, contestID, externalTaskID)
	if err != nil {
		return course.Task{}, repo.trapNoRowsErr(err, "getting task by external id")
	}
	return tsk, nil
}

func (repo resultsRepository) ContestLevels(ctx context.Context, contestID int64) ([]course.ContestLevel, error) {
	levels := make([]course.ContestLevel, 0)
	err := repo.exec.SelectContext(ctx, &levels,
		`SELECT * FROM contest_level WHERE contest_id = $1 ORDER BY id`, contestID)
	if err != nil {
		return nil, errors.Wrap(err, "querying contest levels")
	}
	return levels, nil
}

func (repo resultsRepository) CourseLevels(ctx context.Context, courseID int64) ([]course.CourseLevel, error) {
	levels := make([]course.CourseLevel, 0)
	err := repo.exec.SelectContext(ctx, &levels,
		`SELECT * FROM course_level WHERE course_id = $1 ORDER BY id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course levels")
	}
	return levels, nil
}

func (repo resultsRepository) CourseStudents(ctx context.Context, courseID int64) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.exec.SelectContext(ctx, &students,
		`SELECT s.* FROM student s
		 JOIN student_course sc ON sc.student_id = s.id
		 WHERE sc.course_id = $1 ORDER BY s.login`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	return students, nil
}

// --- aggregates ---

func (repo resultsRepository) GetOrCreateStudentCourse(ctx context.Context, studentID, courseID int64) (results.StudentCourse, error) {
	var agg results.StudentCourse
	// no-op upsert so the row comes back whether it existed or not
	err := repo.exec.GetContext(ctx, &agg,
		`INSERT INTO student_course (student_id, course_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, course_id) DO UPDATE SET student_id = EXCLUDED.student_id
		 RETURNING *`, studentID, courseID)
	if err != nil {
		return results.StudentCourse{}, errors.Wrap(err, "getting student course")
	}
	return agg, nil
}

func (repo resultsRepository) StudentCourse(ctx context.Context, studentID, courseID int64) (results.StudentCourse, error) {
	var agg results.StudentCourse
	err := repo.exec.GetContext(ctx, &agg,
		`SELECT * FROM student_course WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return results.StudentCourse{}, repo.trapNoRowsErr(err, "getting student course")
	}
	return agg, nil
}

func (repo resultsRepository) SaveStudentCourse(ctx context.Context, agg *results.StudentCourse) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_course SET score = $2, score_no_deadline = $3, contests_ok = $4,
		        is_ok = $5, is_ok_final = $6, allow_early_exam = $7, updated_at = $8
		 WHERE id = $1`,
		agg.ID, agg.Score, agg.ScoreNoDeadline, agg.ContestsOK,
		agg.IsOK, agg.IsOKFinal, agg.AllowEarlyExam, agg.UpdatedAt,
	)
	return errors.Wrap(err, "saving student course")
}

func (repo resultsRepository) GetOrCreateStudentContest(ctx context.Context, studentID, contestID, courseID int64) (results.StudentContest, error) {
	var sc results.StudentContest
	err := repo.exec.GetContext(ctx, &sc,
		`INSERT INTO student_contest (student_id, contest_id, course_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (student_id, contest_id) DO UPDATE SET student_id = EXCLUDED.student_id
		 RETURNING *`, studentID, contestID, courseID)
	if err != nil {
		return results.StudentContest{}, errors.Wrap(err, "getting student contest")
	}
	return sc, nil
}

func (repo resultsRepository) StudentContestByAuthor(ctx context.Context, contestID, authorID int64) (results.StudentContest, error) {
	var sc results.StudentContest
	err := repo.exec.GetContext(ctx, &sc,
		`SELECT * FROM student_contest WHERE contest_id = $1 AND author_id = $2`, contestID, authorID)
	if err != nil {
		return results.StudentContest{}, repo.trapNoRowsErr(err, "getting student contest by author")
	}
	return sc, nil
}

func (repo resultsRepository) SetStudentContestAuthor(ctx context.Context, id, authorID int64) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_contest SET author_id = $2, updated_at = now() WHERE id = $1`, id, authorID)
	return errors.Wrap(err, "setting author id")
}

func (repo resultsRepository) ClearAuthors(ctx context.Context, studentID int64) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_contest SET author_id = NULL, updated_at = now() WHERE student_id = $1`, studentID)
	return errors.Wrap(err, "clearing author ids")
}

func (repo resultsRepository) SaveStudentContest(ctx context.Context, sc *results.StudentContest) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_contest SET tasks_done = $2, score = $3, score_no_deadline = $4,
		        is_ok = $5, is_ok_no_deadline = $6, updated_at = $7
		 WHERE id = $1`,
		sc.ID, sc.TasksDone, sc.Score, sc.ScoreNoDeadline,
		sc.IsOK, sc.IsOKNoDeadline, sc.UpdatedAt,
	)
	return errors.Wrap(err, "saving student contest")
}

func (repo resultsRepository) StudentContests(ctx context.Context, courseID, studentID int64) ([]results.StudentContest, error) {
	scs := make([]results.StudentContest, 0)
	err := repo.exec.SelectContext(ctx, &scs,
		`SELECT * FROM student_contest WHERE course_id = $1 AND student_id = $2 ORDER BY contest_id`,
		courseID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student contests")
	}
	return scs, nil
}

func (repo resultsRepository) GetOrCreateStudentTask(ctx context.Context, studentID, taskID int64) (results.StudentTask, error) {
	var st results.StudentTask
	err := repo.exec.GetContext(ctx, &st,
		`INSERT INTO student_task (student_id, task_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, task_id) DO UPDATE SET student_id = EXCLUDED.student_id
		 RETURNING *`, studentID, taskID)
	if err != nil {
		return results.StudentTask{}, errors.Wrap(err, "getting student task")
	}
	return st, nil
}

func (repo resultsRepository) SaveStudentTask(ctx context.Context, st *results.StudentTask) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_task SET final_score = $2, best_score_before_finish = $3, best_score_no_deadline = $4,
		        is_done = $5, best_submission_id = $6, best_before_finish_submission_id = $7,
		        best_no_deadline_submission_id = $8, updated_at = $9
		 WHERE id = $1`,
		st.ID, st.FinalScore, st.BestScoreBeforeFinish, st.BestScoreNoDeadline,
		st.IsDone, st.BestSubmissionID, st.BestBeforeFinishSubID,
		st.BestNoDeadlineSubID, st.UpdatedAt,
	)
	return errors.Wrap(err, "saving student task")
}

func (repo resultsRepository) StudentTasksForContest(ctx context.Context, contestID, studentID int64) ([]results.StudentTask, error) {
	tasks := make([]results.StudentTask, 0)
	err := repo.exec.SelectContext(ctx, &tasks,
		`SELECT st.* FROM student_task st
		 JOIN task t ON t.id = st.task_id
		 WHERE t.contest_id = $1 AND st.student_id = $2 ORDER BY t.alias`,
		contestID, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student tasks")
	}
	return tasks, nil
}

// --- levels ---

func (repo resultsRepository) GetOrCreateStudentContestLevel(ctx context.Context, studentID, contestLevelID int64) (results.StudentContestLevel, error) {
	var lvl results.StudentContestLevel
	err := repo.exec.GetContext(ctx, &lvl,
		`INSERT INTO student_contest_level (student_id, contest_level_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, contest_level_id) DO UPDATE SET student_id = EXCLUDED.student_id
		 RETURNING *`, studentID, contestLevelID)
	if err != nil {
		return results.StudentContestLevel{}, errors.Wrap(err, "getting student contest level")
	}
	return lvl, nil
}

func (repo resultsRepository) SaveStudentContestLevel(ctx context.Context, lvl *results.StudentContestLevel) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_contest_level SET is_ok = $2, updated_at = now() WHERE id = $1`, lvl.ID, lvl.IsOK)
	return errors.Wrap(err, "saving student contest level")
}

func (repo resultsRepository) GetOrCreateStudentCourseLevel(ctx context.Context, studentID, courseLevelID int64) (results.StudentCourseLevel, error) {
	var lvl results.StudentCourseLevel
	err := repo.exec.GetContext(ctx, &lvl,
		`INSERT INTO student_course_level (student_id, course_level_id)
		 VALUES ($1, $2)
		 ON CONFLICT (student_id, course_level_id) DO UPDATE SET student_id = EXCLUDED.student_id
		 RETURNING *`, studentID, courseLevelID)
	if err != nil {
		return results.StudentCourseLevel{}, errors.Wrap(err, "getting student course level")
	}
	return lvl, nil
}

func (repo resultsRepository) SaveStudentCourseLevel(ctx context.Context, lvl *results.StudentCourseLevel) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE student_course_level SET is_ok = $2, updated_at = now() WHERE id = $1`, lvl.ID, lvl.IsOK)
	return errors.Wrap(err, "saving student course level")
}

// --- submissions ---

func (repo resultsRepository) SubmissionByRunID(ctx context.Context, runID int64) (results.Submission, error) {
	var sub results.Submission
	err := repo.exec.GetContext(ctx, &sub, `SELECT * FROM submission WHERE run_id = $1`, runID)
	if err != nil {
		return results.Submission{}, repo.trapNoRowsErr(err, "getting submission by run id")
	}
	return sub, nil
}

func (repo resultsRepository) CreateSubmission(ctx context.Context, sub *results.Submission) error {
	err := repo.exec.GetContext(ctx, &sub.ID,
		`INSERT INTO submission (run_id, student_id, task_id, contest_id, course_id, student_task_id,
		                         verdict, final_score, score_no_deadline, score_before_finish, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		sub.RunID, sub.StudentID, sub.TaskID, sub.ContestID, sub.CourseID, sub.StudentTaskID,
		sub.Verdict, sub.FinalScore, sub.ScoreNoDeadline, sub.ScoreBeforeFinish, sub.SubmittedAt,
	)
	return errors.Wrap(err, "creating submission")
}

func (repo resultsRepository) UpdateSubmission(ctx context.Context, sub *results.Submission) error {
	_, err := repo.exec.ExecContext(ctx,
		`UPDATE submission SET verdict = $2, final_score = $3, score_no_deadline = $4,
		        score_before_finish = $5, submitted_at = $6, updated_at = now()
		 WHERE id = $1`,
		sub.ID, sub.Verdict, sub.FinalScore, sub.ScoreNoDeadline,
		sub.ScoreBeforeFinish, sub.SubmittedAt,
	)
	return errors.Wrap(err, "updating submission")
}

func (repo resultsRepository) LastRunID(ctx context.Context, contestID int64) (int64, error) {
	var last int64
	err := repo.exec.GetContext(ctx, &last,
		`SELECT COALESCE(MAX(run_id), 0) FROM submission WHERE contest_id = $1`, contestID)
	if err != nil {
		return 0, errors.Wrap(err, "getting last run id")
	}
	return last, nil
}

func (repo resultsRepository) SubmissionsByVerdict(ctx context.Context, contestID int64, verdict string) ([]results.Submission, error) {
	subs := make([]results.Submission, 0)
	err := repo.exec.SelectContext(ctx, &subs,
		`SELECT * FROM submission WHERE contest_id = $1 AND verdict = $2 ORDER BY run_id`,
		contestID, verdict)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions by verdict")
	}
	return subs, nil
}
