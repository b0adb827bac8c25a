package results

import (
	"time"

	"github.com/zachetka/backend/core"
)

// Deltas travel strictly upward: task bests feed the owning StudentContest,
// whose lane totals feed the owning StudentCourse. Aggregates are never
// re-derived from a full re-sum here; the periodic full recompute
// (Service.UpdateCourseResults) is the only place that re-sums, and it
// treats disagreement as a data-integrity failure rather than repairing it.

// ApplyToContest folds task-level deltas into the contest aggregate.
// Contest score tracks the sum of task final scores; the no-deadline lane
// tracks the sum of no-deadline bests.
func ApplyToContest(sc *StudentContest, d Deltas) {
	if d.IsZero() {
		return
	}
	sc.Score = core.Round4(sc.Score + d.Final)
	sc.ScoreNoDeadline = core.Round4(sc.ScoreNoDeadline + d.NoDeadline)
	sc.TasksDone += d.Done
	sc.UpdatedAt = time.Now().UTC()
}

// ApplyToCourse folds the same deltas one level further up.
func ApplyToCourse(agg *StudentCourse, d Deltas) {
	if d.Final == 0 && d.NoDeadline == 0 {
		return
	}
	agg.Score = core.Round4(agg.Score + d.Final)
	agg.ScoreNoDeadline = core.Round4(agg.ScoreNoDeadline + d.NoDeadline)
	agg.UpdatedAt = time.Now().UTC()
}
