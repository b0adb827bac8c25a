package results_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
	dummydb "github.com/zachetka/backend/storage/database/dummy"
)

type quietLogger struct{}

func (quietLogger) Enable(bool)                  {}
func (quietLogger) Debug(string, ...interface{}) {}
func (quietLogger) Info(string, ...interface{})  {}
func (quietLogger) Warn(string, ...interface{})  {}
func (quietLogger) Fatal(string, ...interface{}) {}
func (quietLogger) Error(string, ...interface{}) {}

type serviceEnv struct {
	store results.Store
	svc   *results.Service
	repo  course.Repository

	crs course.Course
	cnt course.Contest
	tsk course.Task

	deadline time.Time
}

const envAuthorID = int64(5000)

// newServiceEnv builds one course with one contest and one 10-point task,
// plus a student (id returned) whose contest author id is already resolved.
func newServiceEnv(t *testing.T, tags ...string) (*serviceEnv, int64) {
	t.Helper()
	ctx := context.Background()

	db := dummydb.Open()
	env := &serviceEnv{
		store:    dummydb.NewResultsStore(db),
		repo:     dummydb.NewCourseRepository(db),
		deadline: time.Date(2023, 10, 1, 23, 59, 0, 0, time.UTC),
	}
	env.svc = results.NewService(env.store, quietLogger{})
	students := dummydb.NewStudentRepository(db)

	var err error
	env.crs, err = env.repo.CreateCourse(ctx, course.Course{
		Name:               "Discrete Math",
		ShortName:          "dm",
		ScoreMax:           10,
		ContestCount:       1,
		OKMethod:           course.OKMethodContestsOK,
		OKThresholdPercent: 100,
		IsActive:           true,
	})
	require.NoError(t, err)

	env.cnt, err = env.repo.CreateContest(ctx, course.Contest{
		CourseID:        env.crs.ID,
		YandexContestID: 555,
		TasksCount:      1,
		ScoreMax:        10,
		Deadline:        null.TimeFrom(env.deadline),
		Tags:            pq.StringArray(tags),
	})
	require.NoError(t, err)

	env.tsk, err = env.repo.CreateTask(ctx, course.Task{
		ContestID:      env.cnt.ID,
		ExternalTaskID: "t1",
		Alias:          "A",
		ScoreMax:       10,
		Formula:        course.DefaultFinalScoreFormula,
	})
	require.NoError(t, err)

	std, err := students.CreateStudent(ctx, student.Student{
		Login:        "bob",
		FullName:     "Bob",
		ContestLogin: "bob",
	})
	require.NoError(t, err)
	studentID := std.ID
	require.NoError(t, env.svc.Enroll(ctx, studentID, env.crs))
	sc, err := env.store.GetOrCreateStudentContest(ctx, studentID, env.cnt.ID, env.crs.ID)
	require.NoError(t, err)
	require.NoError(t, env.store.SetStudentContestAuthor(ctx, sc.ID, envAuthorID))
	return env, studentID
}

func (env *serviceEnv) addCreditLevels(t *testing.T, threshold float64) course.ContestLevel {
	t.Helper()
	ctx := context.Background()
	lvl, err := env.repo.CreateContestLevel(ctx, course.ContestLevel{
		ContestID:   env.cnt.ID,
		Name:        course.LevelNameCredit,
		OKMethod:    course.OKMethodScoreSum,
		CountMethod: course.CountMethodAbsolute,
		OKThreshold: threshold,
	})
	require.NoError(t, err)
	_, err = env.repo.CreateContestLevel(ctx, course.ContestLevel{
		ContestID:            env.cnt.ID,
		Name:                 course.LevelNameCreditAdmission,
		OKMethod:             course.OKMethodScoreSum,
		CountMethod:          course.CountMethodAbsolute,
		OKThreshold:          threshold,
		IncludeAfterDeadline: true,
	})
	require.NoError(t, err)
	return lvl
}

func (env *serviceEnv) process(t *testing.T, rec results.SubmissionRecord) results.Deltas {
	t.Helper()
	ctx := context.Background()
	sess, err := env.store.Begin(ctx)
	require.NoError(t, err)
	d, err := env.svc.ProcessSubmission(ctx, sess, env.crs, env.cnt, rec)
	require.NoError(t, err)
	require.NoError(t, sess.Commit())
	return d
}

func okSubmission(runID int64, score float64, at time.Time) results.SubmissionRecord {
	return results.SubmissionRecord{
		RunID:       runID,
		AuthorID:    envAuthorID,
		ProblemID:   "t1",
		Verdict:     results.VerdictOK,
		Score:       score,
		SubmittedAt: at,
	}
}

func Test_Service_ProcessSubmission_necessaryContestOK(t *testing.T) {
	env, studentID := newServiceEnv(t, course.TagNecessary)
	lvl := env.addCreditLevels(t, 6)
	ctx := context.Background()

	d := env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))
	assert.Equal(t, results.Deltas{Final: 6, BeforeFinish: 6, NoDeadline: 6}, d)

	sc, err := env.store.GetOrCreateStudentContest(ctx, studentID, env.cnt.ID, env.crs.ID)
	require.NoError(t, err)
	assert.True(t, sc.IsOK)
	assert.True(t, sc.IsOKNoDeadline)

	agg, err := env.store.StudentCourse(ctx, studentID, env.crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.ContestsOK, "passing a necessary contest counts once")
	assert.True(t, agg.IsOK, "1 of 1 necessary contests is 100%")

	row, err := env.store.GetOrCreateStudentContestLevel(ctx, studentID, lvl.ID)
	require.NoError(t, err)
	assert.True(t, row.IsOK)

	// a second passing submission must not count the contest again
	env.process(t, okSubmission(2, 8, env.deadline.Add(-time.Minute)))
	agg, err = env.store.StudentCourse(ctx, studentID, env.crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.ContestsOK)
}

func Test_Service_ProcessSubmission_afterDeadlineCredit(t *testing.T) {
	env, studentID := newServiceEnv(t, course.TagNecessary)
	env.addCreditLevels(t, 6)
	ctx := context.Background()

	env.process(t, okSubmission(1, 10, env.deadline.Add(time.Hour)))

	sc, err := env.store.GetOrCreateStudentContest(ctx, studentID, env.cnt.ID, env.crs.ID)
	require.NoError(t, err)
	assert.False(t, sc.IsOK, "a late submission cannot earn the deadline-gated credit")
	assert.True(t, sc.IsOKNoDeadline)

	agg, err := env.store.StudentCourse(ctx, studentID, env.crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, agg.ContestsOK)
	assert.False(t, agg.IsOK)
}

func Test_Service_ProcessSubmission_earlyExam(t *testing.T) {
	env, studentID := newServiceEnv(t, course.TagEarlyExam)
	env.addCreditLevels(t, 6)
	ctx := context.Background()

	env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))

	agg, err := env.store.StudentCourse(ctx, studentID, env.crs.ID)
	require.NoError(t, err)
	assert.True(t, agg.AllowEarlyExam)
	assert.Equal(t, 0, agg.ContestsOK, "an early-exam contest is not a necessary one")
}

func Test_Service_ProcessSubmission_duplicateRun(t *testing.T) {
	env, _ := newServiceEnv(t)

	d1 := env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))
	d2 := env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))

	assert.False(t, d1.IsZero())
	assert.True(t, d2.IsZero(), "an already stored run with the same verdict is a no-op")
}

func Test_Service_ProcessSubmission_unresolvedAuthor(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	sess, err := env.store.Begin(ctx)
	require.NoError(t, err)
	rec := okSubmission(1, 6, env.deadline.Add(-time.Hour))
	rec.AuthorID = 31337

	_, err = env.svc.ProcessSubmission(ctx, sess, env.crs, env.cnt, rec)

	require.Error(t, err)
	assert.IsType(t, &results.UnresolvedAuthorError{}, err)
}

func Test_Service_CourseResults(t *testing.T) {
	env, studentID := newServiceEnv(t)
	ctx := context.Background()

	env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))

	res, err := env.svc.CourseResults(ctx, studentID, env.crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, res.Summary.Score)
	require.Len(t, res.Contests, 1)
	assert.Equal(t, 6.0, res.Contests[0].Score)

	_, err = env.svc.CourseResults(ctx, studentID+1, env.crs.ID)
	assert.Equal(t, results.ErrNotFound, err, "viewing results must not enroll anyone")
}

func Test_Service_UpdateCourseResults_clean(t *testing.T) {
	env, _ := newServiceEnv(t)
	ctx := context.Background()

	env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))

	assert.NoError(t, env.svc.UpdateCourseResults(ctx, env.crs))
}

func Test_Service_UpdateCourseResults_drift(t *testing.T) {
	env, studentID := newServiceEnv(t)
	ctx := context.Background()

	env.process(t, okSubmission(1, 6, env.deadline.Add(-time.Hour)))

	sc, err := env.store.GetOrCreateStudentContest(ctx, studentID, env.cnt.ID, env.crs.ID)
	require.NoError(t, err)
	sc.TasksDone = 7
	require.NoError(t, env.store.SaveStudentContest(ctx, &sc))

	err = env.svc.UpdateCourseResults(ctx, env.crs)
	require.Error(t, err)
	assert.IsType(t, &results.ConsistencyError{}, err)
}
