package results

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
)

// laneScores holds the three score lanes computed for one submission.
type laneScores struct {
	noDeadline   float64
	beforeFinish float64
	final        float64
}

// submissionLanes computes the lane scores for one raw submission.
//
// A zero-score "OK" verdict on an is_zero_ok task counts as full credit;
// this models tasks where the checker accepts without points (e.g. theory
// or style tasks) and must be preserved exactly.
func submissionLanes(rec SubmissionRecord, tsk course.Task, deadline null.Time) (laneScores, error) {
	var lanes laneScores

	lanes.noDeadline = rec.Score
	if tsk.IsZeroOK && rec.Score == 0 && rec.Verdict == VerdictOK {
		lanes.noDeadline = tsk.ScoreMax
	}

	if !deadline.Valid || !rec.SubmittedAt.After(deadline.Time) {
		lanes.beforeFinish = lanes.noDeadline
	}

	final, err := Evaluate(tsk.Formula, map[string]float64{
		VarBestScoreBeforeFinish: lanes.beforeFinish,
		VarBestScoreNoDeadline:   lanes.noDeadline,
	})
	if err != nil {
		return laneScores{}, err
	}
	lanes.final = final
	return lanes, nil
}

// Reconcile folds one raw submission into its StudentTask aggregate.
//
// sub must already carry its row ID; verdict, submission time and lane
// scores are written onto it from rec. st's best lanes, best-submission
// references and is_done flag are updated in place whenever this submission
// improves a lane. The returned deltas are the exact non-negative increases
// to push upward: feeding the same submission twice yields zero deltas, and
// lane values never decrease regardless of processing order.
func Reconcile(st *StudentTask, sub *Submission, rec SubmissionRecord, tsk course.Task, deadline null.Time) (Deltas, error) {
	lanes, err := submissionLanes(rec, tsk, deadline)
	if err != nil {
		return Deltas{}, err
	}

	sub.Verdict = rec.Verdict
	sub.SubmittedAt = rec.SubmittedAt.UTC()
	sub.FinalScore = core.Round4(lanes.final)
	sub.ScoreBeforeFinish = core.Round4(lanes.beforeFinish)
	sub.ScoreNoDeadline = core.Round4(lanes.noDeadline)

	var d Deltas
	changed := false

	if sub.FinalScore > st.FinalScore {
		d.Final = core.Round4(sub.FinalScore - st.FinalScore)
		st.FinalScore = sub.FinalScore
		st.BestSubmissionID = null.Int64From(sub.ID)
		changed = true
	}
	if sub.ScoreBeforeFinish > st.BestScoreBeforeFinish {
		d.BeforeFinish = core.Round4(sub.ScoreBeforeFinish - st.BestScoreBeforeFinish)
		st.BestScoreBeforeFinish = sub.ScoreBeforeFinish
		st.BestBeforeFinishSubID = null.Int64From(sub.ID)
		changed = true
	}
	if sub.ScoreNoDeadline > st.BestScoreNoDeadline {
		d.NoDeadline = core.Round4(sub.ScoreNoDeadline - st.BestScoreNoDeadline)
		st.BestScoreNoDeadline = sub.ScoreNoDeadline
		st.BestNoDeadlineSubID = null.Int64From(sub.ID)
		changed = true
	}

	// the first submission to reach the task's max final score marks the
	// task done; the flag never reverts
	if !st.IsDone && tsk.ScoreMax > 0 && st.FinalScore >= tsk.ScoreMax {
		st.IsDone = true
		d.Done = 1
		changed = true
	}

	if changed {
		st.UpdatedAt = time.Now().UTC()
	}
	return d, nil
}
