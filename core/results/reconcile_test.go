package results

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/zachetka/backend/core/course"
)

var testDeadline = time.Date(2023, 10, 1, 23, 59, 0, 0, time.UTC)

func testTask(scoreMax float64) course.Task {
	return course.Task{
		ID:       1,
		ScoreMax: scoreMax,
		Formula:  course.DefaultFinalScoreFormula,
	}
}

func record(runID int64, score float64, at time.Time) SubmissionRecord {
	return SubmissionRecord{
		RunID:       runID,
		AuthorID:    100,
		ProblemID:   "A",
		Verdict:     VerdictOK,
		Score:       score,
		SubmittedAt: at,
	}
}

func reconcileOne(t *testing.T, st *StudentTask, rec SubmissionRecord, tsk course.Task, deadline null.Time) Deltas {
	t.Helper()
	sub := &Submission{ID: rec.RunID} // stand-in row id
	d, err := Reconcile(st, sub, rec, tsk, deadline)
	require.NoError(t, err)
	return d
}

func Test_Reconcile_firstSubmission(t *testing.T) {
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)

	d := reconcileOne(t, st, record(1, 6, testDeadline.Add(-time.Hour)), testTask(10), deadline)

	assert.Equal(t, Deltas{Final: 6, BeforeFinish: 6, NoDeadline: 6}, d)
	assert.Equal(t, 6.0, st.FinalScore)
	assert.Equal(t, 6.0, st.BestScoreBeforeFinish)
	assert.Equal(t, 6.0, st.BestScoreNoDeadline)
	assert.False(t, st.IsDone)
	assert.Equal(t, int64(1), st.BestSubmissionID.Int64)
}

func Test_Reconcile_worseSubmissionIsNoop(t *testing.T) {
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)

	reconcileOne(t, st, record(1, 6, testDeadline.Add(-time.Hour)), testTask(10), deadline)
	d := reconcileOne(t, st, record(2, 4, testDeadline.Add(-30*time.Minute)), testTask(10), deadline)

	assert.True(t, d.IsZero())
	assert.Equal(t, 6.0, st.FinalScore)
	assert.Equal(t, int64(1), st.BestSubmissionID.Int64, "best submission must not move")
}

func Test_Reconcile_idempotent(t *testing.T) {
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)
	rec := record(1, 6, testDeadline.Add(-time.Hour))

	reconcileOne(t, st, rec, testTask(10), deadline)
	d := reconcileOne(t, st, rec, testTask(10), deadline)

	assert.True(t, d.IsZero(), "reprocessing the same submission must not change anything")
}

func Test_Reconcile_deadlineGating(t *testing.T) {
	// the scenario from the scoring rules: 6 points before the deadline,
	// 10 points after; the final score keeps the pre-deadline best while
	// the no-deadline lane tracks the overall best
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)

	d1 := reconcileOne(t, st, record(1, 6, testDeadline.Add(-time.Hour)), testTask(10), deadline)
	d2 := reconcileOne(t, st, record(2, 10, testDeadline.Add(time.Hour)), testTask(10), deadline)

	assert.Equal(t, Deltas{Final: 6, BeforeFinish: 6, NoDeadline: 6}, d1)
	assert.Equal(t, Deltas{NoDeadline: 4}, d2)
	assert.Equal(t, 6.0, st.FinalScore)
	assert.Equal(t, 6.0, st.BestScoreBeforeFinish)
	assert.Equal(t, 10.0, st.BestScoreNoDeadline)
	assert.False(t, st.IsDone)
}

func Test_Reconcile_orderIndependent(t *testing.T) {
	deadline := null.TimeFrom(testDeadline)
	recA := record(1, 6, testDeadline.Add(-time.Hour))
	recB := record(2, 10, testDeadline.Add(time.Hour))

	ab := &StudentTask{}
	dA1 := reconcileOne(t, ab, recA, testTask(10), deadline)
	dB1 := reconcileOne(t, ab, recB, testTask(10), deadline)

	ba := &StudentTask{}
	dB2 := reconcileOne(t, ba, recB, testTask(10), deadline)
	dA2 := reconcileOne(t, ba, recA, testTask(10), deadline)

	assert.Equal(t, ab.FinalScore, ba.FinalScore)
	assert.Equal(t, ab.BestScoreBeforeFinish, ba.BestScoreBeforeFinish)
	assert.Equal(t, ab.BestScoreNoDeadline, ba.BestScoreNoDeadline)

	// cumulative deltas per lane match regardless of processing order
	assert.Equal(t, dA1.Final+dB1.Final, dB2.Final+dA2.Final)
	assert.Equal(t, dA1.NoDeadline+dB1.NoDeadline, dB2.NoDeadline+dA2.NoDeadline)
}

func Test_Reconcile_noDeadline(t *testing.T) {
	st := &StudentTask{}

	d := reconcileOne(t, st, record(1, 10, testDeadline.Add(24*time.Hour)), testTask(10), null.Time{})

	assert.Equal(t, Deltas{Final: 10, BeforeFinish: 10, NoDeadline: 10, Done: 1}, d)
	assert.True(t, st.IsDone)
}

func Test_Reconcile_zeroOKTask(t *testing.T) {
	tsk := testTask(1)
	tsk.IsZeroOK = true
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)

	rec := record(1, 0, testDeadline.Add(-time.Hour))
	d := reconcileOne(t, st, rec, tsk, deadline)

	// a zero-score OK on a zero-ok task counts as full credit
	assert.Equal(t, Deltas{Final: 1, BeforeFinish: 1, NoDeadline: 1, Done: 1}, d)
	assert.True(t, st.IsDone)
}

func Test_Reconcile_zeroOKRequiresOKVerdict(t *testing.T) {
	tsk := testTask(1)
	tsk.IsZeroOK = true
	st := &StudentTask{}

	rec := record(1, 0, testDeadline.Add(-time.Hour))
	rec.Verdict = "WA"
	d := reconcileOne(t, st, rec, tsk, null.TimeFrom(testDeadline))

	assert.True(t, d.IsZero())
	assert.False(t, st.IsDone)
}

func Test_Reconcile_doneFlagNeverReverts(t *testing.T) {
	st := &StudentTask{}
	deadline := null.TimeFrom(testDeadline)

	d1 := reconcileOne(t, st, record(1, 10, testDeadline.Add(-time.Hour)), testTask(10), deadline)
	d2 := reconcileOne(t, st, record(2, 10, testDeadline.Add(-time.Minute)), testTask(10), deadline)

	assert.Equal(t, 1, d1.Done)
	assert.Equal(t, 0, d2.Done, "done must be counted exactly once")
	assert.True(t, st.IsDone)
}

func Test_Reconcile_formulaError(t *testing.T) {
	tsk := testTask(10)
	tsk.Formula = "{typo_variable}"
	st := &StudentTask{}
	sub := &Submission{ID: 1}

	_, err := Reconcile(st, sub, record(1, 5, testDeadline), tsk, null.Time{})

	assert.Error(t, err)
	assert.IsType(t, &FormulaError{}, err)
}

func Test_Propagate(t *testing.T) {
	sc := &StudentContest{}
	agg := &StudentCourse{}
	d := Deltas{Final: 6, BeforeFinish: 6, NoDeadline: 10, Done: 1}

	ApplyToContest(sc, d)
	ApplyToCourse(agg, d)

	assert.Equal(t, 6.0, sc.Score)
	assert.Equal(t, 10.0, sc.ScoreNoDeadline)
	assert.Equal(t, 1, sc.TasksDone)
	assert.Equal(t, 6.0, agg.Score)
	assert.Equal(t, 10.0, agg.ScoreNoDeadline)

	// zero deltas leave aggregates untouched
	before := *sc
	ApplyToContest(sc, Deltas{})
	assert.Equal(t, before, *sc)
}

func Test_Propagate_rounding(t *testing.T) {
	sc := &StudentContest{Score: 0.1}
	ApplyToContest(sc, Deltas{Final: 0.2, Done: 0})
	assert.Equal(t, 0.3, sc.Score, "lane sums are kept at 4 decimals")
}
