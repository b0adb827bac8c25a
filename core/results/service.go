package results

import (
	"context"
	"fmt"
	"math"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/student"
)

type (
	// Repository is the persistence surface the pipeline runs against.
	// Methods follow get-or-create semantics where rows appear lazily.
	Repository interface {
		// course structure (read-only here; owned by the course package)
		CourseContests(ctx context.Context, courseID int64) ([]course.Contest, error)
		ContestTasks(ctx context.Context, contestID int64) ([]course.Task, error)
		TaskByExternalID(ctx context.Context, contestID int64, externalTaskID string) (course.Task, error)
		ContestLevels(ctx context.Context, contestID int64) ([]course.ContestLevel, error)
		CourseLevels(ctx context.Context, courseID int64) ([]course.CourseLevel, error)
		CourseStudents(ctx context.Context, courseID int64) ([]student.Student, error)

		// aggregates
		GetOrCreateStudentCourse(ctx context.Context, studentID, courseID int64) (StudentCourse, error)
		StudentCourse(ctx context.Context, studentID, courseID int64) (StudentCourse, error)
		SaveStudentCourse(ctx context.Context, agg *StudentCourse) error
		GetOrCreateStudentContest(ctx context.Context, studentID, contestID, courseID int64) (StudentContest, error)
		StudentContestByAuthor(ctx context.Context, contestID, authorID int64) (StudentContest, error)
		SetStudentContestAuthor(ctx context.Context, id, authorID int64) error
		ClearAuthors(ctx context.Context, studentID int64) error
		SaveStudentContest(ctx context.Context, sc *StudentContest) error
		StudentContests(ctx context.Context, courseID, studentID int64) ([]StudentContest, error)
		GetOrCreateStudentTask(ctx context.Context, studentID, taskID int64) (StudentTask, error)
		SaveStudentTask(ctx context.Context, st *StudentTask) error
		StudentTasksForContest(ctx context.Context, contestID, studentID int64) ([]StudentTask, error)

		// levels
		GetOrCreateStudentContestLevel(ctx context.Context, studentID, contestLevelID int64) (StudentContestLevel, error)
		SaveStudentContestLevel(ctx context.Context, lvl *StudentContestLevel) error
		GetOrCreateStudentCourseLevel(ctx context.Context, studentID, courseLevelID int64) (StudentCourseLevel, error)
		SaveStudentCourseLevel(ctx context.Context, lvl *StudentCourseLevel) error

		// submissions
		SubmissionByRunID(ctx context.Context, runID int64) (Submission, error)
		CreateSubmission(ctx context.Context, sub *Submission) error
		UpdateSubmission(ctx context.Context, sub *Submission) error
		LastRunID(ctx context.Context, contestID int64) (int64, error)
		SubmissionsByVerdict(ctx context.Context, contestID int64, verdict string) ([]Submission, error)
	}

	// Session is a Repository bound to one transaction. The orchestrator
	// commits after each meaningful unit of work and discards the session
	// on failure; no long-lived transaction spans a sync run.
	Session interface {
		Repository
		Commit() error
		Rollback() error
	}

	// Store hands out sessions and serves auto-commit reads.
	Store interface {
		Repository
		Begin(ctx context.Context) (Session, error)
	}

	Service struct {
		store Store
		log   core.Logger
	}
)

func NewService(store Store, log core.Logger) *Service {
	return &Service{store: store, log: log}
}

func (svc *Service) Store() Store { return svc.store }

// scoreEpsilon absorbs 4-decimal rounding when comparing recomputed sums
// with incrementally maintained ones.
const scoreEpsilon = 1e-6

// ProcessSubmission drives one submission through reconciliation, score
// propagation, and ok evaluation inside the caller's session. A submission already stored
// with the same verdict is a no-op; a stored submission whose verdict
// changed takes the update path. The returned deltas are zero for no-ops.
func (svc *Service) ProcessSubmission(ctx context.Context, sess Session, crs course.Course, cnt course.Contest, rec SubmissionRecord) (Deltas, error) {
	sc, err := sess.StudentContestByAuthor(ctx, cnt.ID, rec.AuthorID)
	if err != nil {
		if err == ErrNotFound {
			return Deltas{}, &UnresolvedAuthorError{AuthorID: rec.AuthorID, ContestID: cnt.ID}
		}
		return Deltas{}, err
	}

	tsk, err := sess.TaskByExternalID(ctx, cnt.ID, rec.ProblemID)
	if err != nil {
		if err == ErrNotFound {
			return Deltas{}, fmt.Errorf("contest %d has no task %q", cnt.ID, rec.ProblemID)
		}
		return Deltas{}, err
	}

	st, err := sess.GetOrCreateStudentTask(ctx, sc.StudentID, tsk.ID)
	if err != nil {
		return Deltas{}, err
	}

	sub, err := sess.SubmissionByRunID(ctx, rec.RunID)
	switch {
	case err == ErrNotFound:
		sub = Submission{
			RunID:         rec.RunID,
			StudentID:     sc.StudentID,
			TaskID:        tsk.ID,
			ContestID:     cnt.ID,
			CourseID:      crs.ID,
			StudentTaskID: st.ID,
			Verdict:       rec.Verdict,
			SubmittedAt:   rec.SubmittedAt.UTC(),
		}
		if err = sess.CreateSubmission(ctx, &sub); err != nil {
			return Deltas{}, err
		}
	case err != nil:
		return Deltas{}, err
	default:
		// re-fetched submission: only a verdict change reopens it
		if sub.Verdict == rec.Verdict {
			return Deltas{}, nil
		}
	}

	d, err := Reconcile(&st, &sub, rec, tsk, cnt.Deadline)
	if err != nil {
		return Deltas{}, err
	}
	if err = sess.UpdateSubmission(ctx, &sub); err != nil {
		return Deltas{}, err
	}
	if !d.IsZero() {
		if err = sess.SaveStudentTask(ctx, &st); err != nil {
			return Deltas{}, err
		}
	}

	agg, err := sess.GetOrCreateStudentCourse(ctx, sc.StudentID, crs.ID)
	if err != nil {
		return Deltas{}, err
	}

	ApplyToContest(&sc, d)
	ApplyToCourse(&agg, d)

	if err = svc.updateOKState(ctx, sess, crs, cnt, &sc, &agg, !d.IsZero()); err != nil {
		return Deltas{}, err
	}
	return d, nil
}

// updateOKState evaluates every threshold policy touching the given
// aggregates and persists only forward flips and numeric growth.
func (svc *Service) updateOKState(ctx context.Context, sess Session, crs course.Course, cnt course.Contest, sc *StudentContest, agg *StudentCourse, grew bool) error {
	levels, err := sess.ContestLevels(ctx, cnt.ID)
	if err != nil {
		return err
	}

	wasOK := sc.IsOK
	okChanged := UpdateContestOK(sc, cnt, levels)
	if grew || okChanged {
		if err = sess.SaveStudentContest(ctx, sc); err != nil {
			return err
		}
	}

	for _, lvl := range levels {
		row, err := sess.GetOrCreateStudentContestLevel(ctx, sc.StudentID, lvl.ID)
		if err != nil {
			return err
		}
		if !row.IsOK && EvaluateContestLevel(lvl, *sc, cnt) {
			row.IsOK = true
			if err = sess.SaveStudentContestLevel(ctx, &row); err != nil {
				return err
			}
		}
	}

	aggChanged := grew
	if sc.IsOK && !wasOK {
		if cnt.HasTag(course.TagNecessary) {
			agg.ContestsOK++
			aggChanged = true
		}
		if cnt.HasTag(course.TagEarlyExam) && !agg.AllowEarlyExam {
			agg.AllowEarlyExam = true
			aggChanged = true
		}
	}

	finalOK := true
	if !agg.IsOKFinal {
		finalOK, err = svc.finalContestsOK(ctx, sess, crs, agg.StudentID)
		if err != nil {
			return err
		}
	}
	if UpdateCourseOK(agg, crs, finalOK) {
		aggChanged = true
	}

	courseLevels, err := sess.CourseLevels(ctx, crs.ID)
	if err != nil {
		return err
	}
	for _, lvl := range courseLevels {
		row, err := sess.GetOrCreateStudentCourseLevel(ctx, agg.StudentID, lvl.ID)
		if err != nil {
			return err
		}
		if !row.IsOK && EvaluateCourseLevel(lvl, *agg, crs) {
			row.IsOK = true
			if err = sess.SaveStudentCourseLevel(ctx, &row); err != nil {
				return err
			}
		}
	}

	if aggChanged {
		return sess.SaveStudentCourse(ctx, agg)
	}
	return nil
}

// finalContestsOK reports whether every FINAL-tagged contest of the course
// is passed by the student (vacuously true when there are none).
func (svc *Service) finalContestsOK(ctx context.Context, repo Repository, crs course.Course, studentID int64) (bool, error) {
	contests, err := repo.CourseContests(ctx, crs.ID)
	if err != nil {
		return false, err
	}
	scs, err := repo.StudentContests(ctx, crs.ID, studentID)
	if err != nil {
		return false, err
	}
	okByContest := make(map[int64]bool, len(scs))
	for _, sc := range scs {
		okByContest[sc.ContestID] = sc.IsOK
	}
	for _, cnt := range contests {
		if cnt.HasTag(course.TagFinal) && !okByContest[cnt.ID] {
			return false, nil
		}
	}
	return true, nil
}

// CourseResults is the per-student aggregate view served by the API.
type CourseResults struct {
	Summary  StudentCourse    `json:"summary"`
	Contests []StudentContest `json:"contests"`
}

// CourseResults returns a student's standing in one course. The student
// must be enrolled; nothing is created on this path.
func (svc *Service) CourseResults(ctx context.Context, studentID, courseID int64) (CourseResults, error) {
	agg, err := svc.store.StudentCourse(ctx, studentID, courseID)
	if err != nil {
		return CourseResults{}, err
	}
	scs, err := svc.store.StudentContests(ctx, courseID, studentID)
	if err != nil {
		return CourseResults{}, err
	}
	return CourseResults{Summary: agg, Contests: scs}, nil
}

// Enroll lazily creates the per-course and per-contest aggregate rows for
// one student. Safe to call repeatedly.
func (svc *Service) Enroll(ctx context.Context, studentID int64, crs course.Course) error {
	if _, err := svc.store.GetOrCreateStudentCourse(ctx, studentID, crs.ID); err != nil {
		return err
	}
	contests, err := svc.store.CourseContests(ctx, crs.ID)
	if err != nil {
		return err
	}
	for _, cnt := range contests {
		if _, err = svc.store.GetOrCreateStudentContest(ctx, studentID, cnt.ID, crs.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCourseResults is the periodic full-recompute pass. It re-sums every
// aggregate from scratch and compares against the incrementally maintained
// values, raising *ConsistencyError on any disagreement instead of
// repairing it. Ok flags are re-evaluated on the way (forward flips only),
// which catches policy changes made between sync runs.
func (svc *Service) UpdateCourseResults(ctx context.Context, crs course.Course) error {
	contests, err := svc.store.CourseContests(ctx, crs.ID)
	if err != nil {
		return err
	}

	if crs.ContestCount != len(contests) {
		return &ConsistencyError{CourseID: crs.ID, Msg: fmt.Sprintf(
			"contest_count=%d but %d contests exist", crs.ContestCount, len(contests))}
	}
	var contestScoreMax float64
	for _, cnt := range contests {
		contestScoreMax += cnt.ScoreMax
	}
	if math.Abs(contestScoreMax-crs.ScoreMax) > scoreEpsilon {
		return &ConsistencyError{CourseID: crs.ID, Msg: fmt.Sprintf(
			"score_max=%v but contests sum to %v", crs.ScoreMax, contestScoreMax)}
	}

	students, err := svc.store.CourseStudents(ctx, crs.ID)
	if err != nil {
		return err
	}
	for _, std := range students {
		if err = svc.recomputeStudent(ctx, crs, contests, std.ID); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) recomputeStudent(ctx context.Context, crs course.Course, contests []course.Contest, studentID int64) error {
	sess, err := svc.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback() //nolint:errcheck // no-op after commit

	agg, err := sess.GetOrCreateStudentCourse(ctx, studentID, crs.ID)
	if err != nil {
		return err
	}

	var courseScore, courseNoDeadline float64
	for _, cnt := range contests {
		sc, err := sess.GetOrCreateStudentContest(ctx, studentID, cnt.ID, crs.ID)
		if err != nil {
			return err
		}
		tasks, err := sess.StudentTasksForContest(ctx, cnt.ID, studentID)
		if err != nil {
			return err
		}

		var score, noDeadline float64
		var done int
		for _, st := range tasks {
			score += st.FinalScore
			noDeadline += st.BestScoreNoDeadline
			if st.IsDone {
				done++
			}
		}
		score, noDeadline = core.Round4(score), core.Round4(noDeadline)

		if math.Abs(score-sc.Score) > scoreEpsilon ||
			math.Abs(noDeadline-sc.ScoreNoDeadline) > scoreEpsilon ||
			done != sc.TasksDone {
			return &ConsistencyError{CourseID: crs.ID, Msg: fmt.Sprintf(
				"student %d contest %d drifted: stored (%v, %v, %d) recomputed (%v, %v, %d)",
				studentID, cnt.ID, sc.Score, sc.ScoreNoDeadline, sc.TasksDone, score, noDeadline, done)}
		}
		courseScore += score
		courseNoDeadline += noDeadline

		levels, err := sess.ContestLevels(ctx, cnt.ID)
		if err != nil {
			return err
		}
		if UpdateContestOK(&sc, cnt, levels) {
			if err = sess.SaveStudentContest(ctx, &sc); err != nil {
				return err
			}
		}
	}

	courseScore, courseNoDeadline = core.Round4(courseScore), core.Round4(courseNoDeadline)
	if math.Abs(courseScore-agg.Score) > scoreEpsilon ||
		math.Abs(courseNoDeadline-agg.ScoreNoDeadline) > scoreEpsilon {
		return &ConsistencyError{CourseID: crs.ID, Msg: fmt.Sprintf(
			"student %d course aggregate drifted: stored (%v, %v) recomputed (%v, %v)",
			studentID, agg.Score, agg.ScoreNoDeadline, courseScore, courseNoDeadline)}
	}

	finalOK, err := svc.finalContestsOK(ctx, sess, crs, studentID)
	if err != nil {
		return err
	}
	if UpdateCourseOK(&agg, crs, finalOK) {
		if err = sess.SaveStudentCourse(ctx, &agg); err != nil {
			return err
		}
	}
	return sess.Commit()
}
