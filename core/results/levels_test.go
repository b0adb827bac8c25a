package results

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zachetka/backend/core/course"
)

func contestLevel(okMethod, countMethod string, threshold float64) course.ContestLevel {
	return course.ContestLevel{
		Name:        course.LevelNameCredit,
		OKMethod:    okMethod,
		CountMethod: countMethod,
		OKThreshold: threshold,
	}
}

func Test_EvaluateContestLevel(t *testing.T) {
	cnt := course.Contest{TasksCount: 5, ScoreMax: 100}

	tests := []struct {
		name string
		lvl  course.ContestLevel
		sc   StudentContest
		want bool
	}{
		{
			name: "percent score just below threshold",
			lvl:  contestLevel(course.OKMethodScoreSum, course.CountMethodPercent, 50),
			sc:   StudentContest{Score: 49},
			want: false,
		},
		{
			name: "percent score exactly at threshold",
			lvl:  contestLevel(course.OKMethodScoreSum, course.CountMethodPercent, 50),
			sc:   StudentContest{Score: 50},
			want: true,
		},
		{
			name: "absolute tasks count below threshold",
			lvl:  contestLevel(course.OKMethodTasksCount, course.CountMethodAbsolute, 5),
			sc:   StudentContest{TasksDone: 4},
			want: false,
		},
		{
			name: "absolute tasks count at threshold",
			lvl:  contestLevel(course.OKMethodTasksCount, course.CountMethodAbsolute, 5),
			sc:   StudentContest{TasksDone: 5},
			want: true,
		},
		{
			name: "percent tasks count",
			lvl:  contestLevel(course.OKMethodTasksCount, course.CountMethodPercent, 80),
			sc:   StudentContest{TasksDone: 4},
			want: true,
		},
		{
			name: "absolute score",
			lvl:  contestLevel(course.OKMethodScoreSum, course.CountMethodAbsolute, 60),
			sc:   StudentContest{Score: 60},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateContestLevel(tt.lvl, tt.sc, cnt))
		})
	}
}

func Test_EvaluateContestLevel_afterDeadlineLane(t *testing.T) {
	cnt := course.Contest{ScoreMax: 10}
	sc := StudentContest{Score: 3, ScoreNoDeadline: 8}

	pre := contestLevel(course.OKMethodScoreSum, course.CountMethodAbsolute, 8)
	assert.False(t, EvaluateContestLevel(pre, sc, cnt), "pre-deadline level reads the gated lane")

	post := pre
	post.IncludeAfterDeadline = true
	assert.True(t, EvaluateContestLevel(post, sc, cnt), "include_after_deadline switches to the no-deadline lane")
}

func Test_EvaluateContestLevel_percentWithZeroMax(t *testing.T) {
	lvl := contestLevel(course.OKMethodScoreSum, course.CountMethodPercent, 50)
	sc := StudentContest{Score: 10}
	assert.False(t, EvaluateContestLevel(lvl, sc, course.Contest{ScoreMax: 0}))
}

func Test_UpdateContestOK(t *testing.T) {
	cnt := course.Contest{ScoreMax: 10}
	levels := []course.ContestLevel{
		{Name: course.LevelNameCredit, OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 6},
		{Name: course.LevelNameCreditAdmission, OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 6, IncludeAfterDeadline: true},
	}

	sc := &StudentContest{Score: 3, ScoreNoDeadline: 6}
	assert.True(t, UpdateContestOK(sc, cnt, levels))
	assert.False(t, sc.IsOK)
	assert.True(t, sc.IsOKNoDeadline)

	// already-set flags never flip back, even if the state would no longer
	// satisfy the level
	sc.ScoreNoDeadline = 0
	assert.False(t, UpdateContestOK(sc, cnt, levels))
	assert.True(t, sc.IsOKNoDeadline)

	sc.Score = 6
	assert.True(t, UpdateContestOK(sc, cnt, levels))
	assert.True(t, sc.IsOK)
}

func Test_UpdateContestOK_noLevels(t *testing.T) {
	sc := &StudentContest{Score: 100}
	assert.False(t, UpdateContestOK(sc, course.Contest{ScoreMax: 10}, nil))
	assert.False(t, sc.IsOK, "a contest without levels never flips")
}

func Test_UpdateContestOK_namedLevelPrecedence(t *testing.T) {
	cnt := course.Contest{ScoreMax: 10}
	// an auxiliary level is satisfied, but the named credit level is not;
	// the named one decides
	levels := []course.ContestLevel{
		{Name: "Бонус", OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 1},
		{Name: course.LevelNameCredit, OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 8},
	}

	sc := &StudentContest{Score: 5}
	assert.False(t, UpdateContestOK(sc, cnt, levels))
	assert.False(t, sc.IsOK)

	sc.Score = 8
	assert.True(t, UpdateContestOK(sc, cnt, levels))
	assert.True(t, sc.IsOK)
}

func Test_UpdateContestOK_unnamedLevelsAnyMet(t *testing.T) {
	cnt := course.Contest{ScoreMax: 10}
	// without the legacy named pair, any satisfied level is enough
	levels := []course.ContestLevel{
		{Name: "hard", OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 9},
		{Name: "easy", OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 3},
	}

	sc := &StudentContest{Score: 4}
	assert.True(t, UpdateContestOK(sc, cnt, levels))
	assert.True(t, sc.IsOK)
}

func Test_EvaluateCourseLevel(t *testing.T) {
	crs := course.Course{ScoreMax: 200, ContestCount: 10}

	tests := []struct {
		name string
		lvl  course.CourseLevel
		agg  StudentCourse
		want bool
	}{
		{
			name: "contests ok percent met",
			lvl:  course.CourseLevel{OKMethod: course.OKMethodContestsOK, CountMethod: course.CountMethodPercent, OKThreshold: 70},
			agg:  StudentCourse{ContestsOK: 7},
			want: true,
		},
		{
			name: "contests ok percent not met",
			lvl:  course.CourseLevel{OKMethod: course.OKMethodContestsOK, CountMethod: course.CountMethodPercent, OKThreshold: 70},
			agg:  StudentCourse{ContestsOK: 6},
			want: false,
		},
		{
			name: "score sum absolute",
			lvl:  course.CourseLevel{OKMethod: course.OKMethodScoreSum, CountMethod: course.CountMethodAbsolute, OKThreshold: 120},
			agg:  StudentCourse{Score: 120},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCourseLevel(tt.lvl, tt.agg, crs))
		})
	}
}

func Test_UpdateCourseOK(t *testing.T) {
	crs := course.Course{
		OKMethod:           course.OKMethodContestsOK,
		OKThresholdPercent: 50,
		ContestCount:       4,
	}

	agg := &StudentCourse{ContestsOK: 1}
	assert.False(t, UpdateCourseOK(agg, crs, false))
	assert.False(t, agg.IsOK)

	agg.ContestsOK = 2
	assert.True(t, UpdateCourseOK(agg, crs, false))
	assert.True(t, agg.IsOK)
	assert.False(t, agg.IsOKFinal, "final flag waits for the final-tagged contests")

	assert.True(t, UpdateCourseOK(agg, crs, true))
	assert.True(t, agg.IsOKFinal)

	// both flags are monotone
	agg.ContestsOK = 0
	assert.False(t, UpdateCourseOK(agg, crs, false))
	assert.True(t, agg.IsOK)
	assert.True(t, agg.IsOKFinal)
}

func Test_UpdateCourseOK_scoreSum(t *testing.T) {
	crs := course.Course{
		OKMethod:           course.OKMethodScoreSum,
		OKThresholdPercent: 60,
		ScoreMax:           100,
	}

	agg := &StudentCourse{Score: 59.9}
	assert.False(t, UpdateCourseOK(agg, crs, true))

	agg.Score = 60
	assert.True(t, UpdateCourseOK(agg, crs, true))
	assert.True(t, agg.IsOK)
	assert.True(t, agg.IsOKFinal)
}
