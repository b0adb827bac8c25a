package results

import (
	"time"

	"github.com/zachetka/backend/core/course"
)

// thresholdMet is the single comparison every level policy reduces to.
func thresholdMet(countMethod string, value, maxPossible, threshold float64) bool {
	if countMethod == course.CountMethodPercent {
		if maxPossible == 0 {
			return false
		}
		return 100*value/maxPossible >= threshold
	}
	return value >= threshold
}

// contestLevelValue picks the quantity a contest-scoped level looks at.
func contestLevelValue(lvl course.ContestLevel, sc StudentContest, cnt course.Contest) (value, maxPossible float64) {
	if lvl.OKMethod == course.OKMethodTasksCount {
		return float64(sc.TasksDone), float64(cnt.TasksCount)
	}
	if lvl.IncludeAfterDeadline {
		return sc.ScoreNoDeadline, cnt.ScoreMax
	}
	return sc.Score, cnt.ScoreMax
}

// EvaluateContestLevel computes the ok outcome of one contest level policy
// against the current aggregate state.
func EvaluateContestLevel(lvl course.ContestLevel, sc StudentContest, cnt course.Contest) bool {
	value, maxPossible := contestLevelValue(lvl, sc, cnt)
	return thresholdMet(lvl.CountMethod, value, maxPossible, lvl.OKThreshold)
}

// EvaluateCourseLevel computes the ok outcome of one course level policy.
func EvaluateCourseLevel(lvl course.CourseLevel, agg StudentCourse, crs course.Course) bool {
	var value, maxPossible float64
	if lvl.OKMethod == course.OKMethodContestsOK {
		value, maxPossible = float64(agg.ContestsOK), float64(crs.ContestCount)
	} else {
		value, maxPossible = agg.Score, crs.ScoreMax
	}
	return thresholdMet(lvl.CountMethod, value, maxPossible, lvl.OKThreshold)
}

// UpdateContestOK recomputes the monotone ok flags on a StudentContest from
// its configured levels and reports whether anything flipped.
//
// Levels with include_after_deadline drive is_ok_no_deadline from the
// no-deadline lane; the rest drive is_ok from the deadline-gated lane.
// Within each group the legacy named levels ("Зачет" for is_ok, "Допуск к
// зачету" for is_ok_no_deadline) take precedence where present: older
// contests carry both named policies plus auxiliary ones, and only the
// named pair decides the flag. The flag flips false to true when any
// considered level is satisfied; no other transition exists.
func UpdateContestOK(sc *StudentContest, cnt course.Contest, levels []course.ContestLevel) bool {
	if len(levels) == 0 {
		return false
	}

	var pre, post []course.ContestLevel
	for _, lvl := range levels {
		if lvl.IncludeAfterDeadline {
			post = append(post, lvl)
		} else {
			pre = append(pre, lvl)
		}
	}

	changed := false
	if !sc.IsOK && anyLevelMet(selectNamed(pre, course.LevelNameCredit), *sc, cnt) {
		sc.IsOK = true
		changed = true
	}
	if !sc.IsOKNoDeadline && anyLevelMet(selectNamed(post, course.LevelNameCreditAdmission), *sc, cnt) {
		sc.IsOKNoDeadline = true
		changed = true
	}
	if changed {
		sc.UpdatedAt = time.Now().UTC()
	}
	return changed
}

// selectNamed narrows to the levels carrying the legacy name when any do.
func selectNamed(levels []course.ContestLevel, name string) []course.ContestLevel {
	var named []course.ContestLevel
	for _, lvl := range levels {
		if lvl.Name == name {
			named = append(named, lvl)
		}
	}
	if len(named) > 0 {
		return named
	}
	return levels
}

// anyLevelMet is the legacy min-score_need rule generalized: with absolute
// score thresholds, "score >= min(score_need)" is exactly "any level met".
func anyLevelMet(levels []course.ContestLevel, sc StudentContest, cnt course.Contest) bool {
	for _, lvl := range levels {
		if EvaluateContestLevel(lvl, sc, cnt) {
			return true
		}
	}
	return false
}

// UpdateCourseOK recomputes the monotone course-wide ok flags and reports
// whether anything flipped. CONTESTS_OK courses compare the share of
// necessary contests passed against ok_threshold_percent; SCORE_SUM
// courses compare the score share.
func UpdateCourseOK(agg *StudentCourse, crs course.Course, finalContestsOK bool) bool {
	var value, maxPossible float64
	if crs.OKMethod == course.OKMethodContestsOK {
		value, maxPossible = float64(agg.ContestsOK), float64(crs.ContestCount)
	} else {
		value, maxPossible = agg.Score, crs.ScoreMax
	}

	changed := false
	if !agg.IsOK && thresholdMet(course.CountMethodPercent, value, maxPossible, crs.OKThresholdPercent) {
		agg.IsOK = true
		changed = true
	}
	// the final flag additionally requires every FINAL-tagged contest to
	// be passed (vacuously true when the course has none)
	if !agg.IsOKFinal && agg.IsOK && finalContestsOK {
		agg.IsOKFinal = true
		changed = true
	}
	if changed {
		agg.UpdatedAt = time.Now().UTC()
	}
	return changed
}
