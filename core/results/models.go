package results

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Submission verdicts we special-case. Any other verdict string is stored
// as-is.
const (
	VerdictOK = "OK"
	// the platform has not produced a report yet; such submissions are
	// re-checked by a dedicated sync pass
	VerdictNoReport = "No report"
)

// Variable names bound during final-score formula evaluation.
const (
	VarBestScoreBeforeFinish = "best_score_before_finish"
	VarBestScoreNoDeadline   = "best_score_no_deadline"
)

type (
	// SubmissionRecord is one raw submission as fetched from the external
	// contest platform.
	SubmissionRecord struct {
		RunID       int64     `json:"id"`
		AuthorID    int64     `json:"authorId"`
		ProblemID   string    `json:"problemId"`
		Verdict     string    `json:"verdict"`
		Score       float64   `json:"finalScore"`
		SubmittedAt time.Time `json:"submissionTime"`
	}

	// Submission is the stored ingestion record, one row per external
	// run_id. The verdict may be updated in place when the platform
	// resolves a "No report".
	Submission struct {
		ID                int64     `db:"id" json:"id"`
		RunID             int64     `db:"run_id" json:"run_id"`
		StudentID         int64     `db:"student_id" json:"student_id"`
		TaskID            int64     `db:"task_id" json:"task_id"`
		ContestID         int64     `db:"contest_id" json:"contest_id"`
		CourseID          int64     `db:"course_id" json:"course_id"`
		StudentTaskID     int64     `db:"student_task_id" json:"student_task_id"`
		Verdict           string    `db:"verdict" json:"verdict"`
		FinalScore        float64   `db:"final_score" json:"final_score"`
		ScoreNoDeadline   float64   `db:"score_no_deadline" json:"score_no_deadline"`
		ScoreBeforeFinish float64   `db:"score_before_finish" json:"score_before_finish"`
		SubmittedAt       time.Time `db:"submitted_at" json:"submitted_at"` // UTC
		CreatedAt         time.Time `db:"created_at" json:"created_at"`    // UTC
		UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`    // UTC
	}

	// StudentTask tracks the best-seen value per score lane for one
	// (student, task), plus the submission that achieved each best.
	// Lane values never decrease.
	StudentTask struct {
		ID                    int64      `db:"id" json:"id"`
		StudentID             int64      `db:"student_id" json:"student_id"`
		TaskID                int64      `db:"task_id" json:"task_id"`
		FinalScore            float64    `db:"final_score" json:"final_score"`
		BestScoreBeforeFinish float64    `db:"best_score_before_finish" json:"best_score_before_finish"`
		BestScoreNoDeadline   float64    `db:"best_score_no_deadline" json:"best_score_no_deadline"`
		IsDone                bool       `db:"is_done" json:"is_done"`
		BestSubmissionID      null.Int64 `db:"best_submission_id" json:"best_submission_id,omitempty"`
		BestBeforeFinishSubID null.Int64 `db:"best_before_finish_submission_id" json:"best_before_finish_submission_id,omitempty"`
		BestNoDeadlineSubID   null.Int64 `db:"best_no_deadline_submission_id" json:"best_no_deadline_submission_id,omitempty"`
		CreatedAt             time.Time  `db:"created_at" json:"created_at"` // UTC
		UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"` // UTC
	}

	// StudentContest aggregates a student's results within one contest.
	// Score lanes are maintained incrementally by exact deltas, never by
	// re-summing, outside the periodic full recompute.
	StudentContest struct {
		ID              int64      `db:"id" json:"id"`
		StudentID       int64      `db:"student_id" json:"student_id"`
		ContestID       int64      `db:"contest_id" json:"contest_id"`
		CourseID        int64      `db:"course_id" json:"course_id"`
		TasksDone       int        `db:"tasks_done" json:"tasks_done"`
		Score           float64    `db:"score" json:"score"`
		ScoreNoDeadline float64    `db:"score_no_deadline" json:"score_no_deadline"`
		IsOK            bool       `db:"is_ok" json:"is_ok"`
		IsOKNoDeadline  bool       `db:"is_ok_no_deadline" json:"is_ok_no_deadline"`
		AuthorID        null.Int64 `db:"author_id" json:"author_id,omitempty"`
		CreatedAt       time.Time  `db:"created_at" json:"created_at"` // UTC
		UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"` // UTC
	}

	// StudentCourse aggregates a student's results across a whole course.
	StudentCourse struct {
		ID              int64     `db:"id" json:"id"`
		StudentID       int64     `db:"student_id" json:"student_id"`
		CourseID        int64     `db:"course_id" json:"course_id"`
		Score           float64   `db:"score" json:"score"`
		ScoreNoDeadline float64   `db:"score_no_deadline" json:"score_no_deadline"`
		ContestsOK      int       `db:"contests_ok" json:"contests_ok"`
		IsOK            bool      `db:"is_ok" json:"is_ok"`
		IsOKFinal       bool      `db:"is_ok_final" json:"is_ok_final"`
		AllowEarlyExam  bool      `db:"allow_early_exam" json:"allow_early_exam"`
		CreatedAt       time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt       time.Time `db:"updated_at" json:"updated_at"` // UTC
	}

	// StudentContestLevel / StudentCourseLevel carry the per-level ok
	// outcome; rows are created lazily on first evaluation.
	StudentContestLevel struct {
		ID             int64     `db:"id" json:"id"`
		StudentID      int64     `db:"student_id" json:"student_id"`
		ContestLevelID int64     `db:"contest_level_id" json:"contest_level_id"`
		IsOK           bool      `db:"is_ok" json:"is_ok"`
		CreatedAt      time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt      time.Time `db:"updated_at" json:"updated_at"` // UTC
	}

	StudentCourseLevel struct {
		ID            int64     `db:"id" json:"id"`
		StudentID     int64     `db:"student_id" json:"student_id"`
		CourseLevelID int64     `db:"course_level_id" json:"course_level_id"`
		IsOK          bool      `db:"is_ok" json:"is_ok"`
		CreatedAt     time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt     time.Time `db:"updated_at" json:"updated_at"` // UTC
	}
)

// Deltas is what one reconciled submission contributes upward: non-negative
// per-lane score increases plus a 0/1 tasks-done increment.
type Deltas struct {
	Final        float64
	BeforeFinish float64
	NoDeadline   float64
	Done         int
}

func (d Deltas) IsZero() bool {
	return d.Final == 0 && d.BeforeFinish == 0 && d.NoDeadline == 0 && d.Done == 0
}
