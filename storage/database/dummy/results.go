package dummydb

import (
	"context"
	"sort"

	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

// resultsStore implements results.Store on the in-memory DB. Sessions are
// pass-throughs: Commit and Rollback are no-ops, writes land immediately.
type resultsStore struct {
	db *DB
}

type resultsSession struct {
	*resultsStore
}

var (
	_ results.Store   = (*resultsStore)(nil)
	_ results.Session = (*resultsSession)(nil)
)

func NewResultsStore(db *DB) *resultsStore {
	return &resultsStore{db: db}
}

func (st *resultsStore) Begin(ctx context.Context) (results.Session, error) {
	return &resultsSession{st}, nil
}

func (s *resultsSession) Commit() error   { return nil }
func (s *resultsSession) Rollback() error { return nil }

// --- course structure ---

func (st *resultsStore) CourseContests(ctx context.Context, courseID int64) ([]course.Contest, error) {
	return NewCourseRepository(st.db).CourseContests(ctx, courseID)
}

func (st *resultsStore) ContestTasks(ctx context.Context, contestID int64) ([]course.Task, error) {
	return NewCourseRepository(st.db).ContestTasks(ctx, contestID)
}

func (st *resultsStore) TaskByExternalID(ctx context.Context, contestID int64, externalTaskID string) (course.Task, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	for _, tsk := range st.db.tasks {
		if tsk.ContestID == contestID && tsk.ExternalTaskID == externalTaskID {
			return *tsk, nil
		}
	}
	return course.Task{}, results.ErrNotFound
}

func (st *resultsStore) ContestLevels(ctx context.Context, contestID int64) ([]course.ContestLevel, error) {
	return NewCourseRepository(st.db).ContestLevels(ctx, contestID)
}

func (st *resultsStore) CourseLevels(ctx context.Context, courseID int64) ([]course.CourseLevel, error) {
	return NewCourseRepository(st.db).CourseLevels(ctx, courseID)
}

func (st *resultsStore) CourseStudents(ctx context.Context, courseID int64) ([]student.Student, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	students := make([]student.Student, 0)
	for _, sc := range st.db.studentCourses {
		if sc.CourseID != courseID {
			continue
		}
		if std, ok := st.db.students[sc.StudentID]; ok {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Login < students[j].Login })
	return students, nil
}

// --- aggregates ---

func (st *resultsStore) GetOrCreateStudentCourse(ctx context.Context, studentID, courseID int64) (results.StudentCourse, error) {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, agg := range st.db.studentCourses {
		if agg.StudentID == studentID && agg.CourseID == courseID {
			return *agg, nil
		}
	}
	agg := results.StudentCourse{ID: st.db.nextID(), StudentID: studentID, CourseID: courseID}
	st.db.studentCourses[agg.ID] = &agg
	return agg, nil
}

func (st *resultsStore) StudentCourse(ctx context.Context, studentID, courseID int64) (results.StudentCourse, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	for _, agg := range st.db.studentCourses {
		if agg.StudentID == studentID && agg.CourseID == courseID {
			return *agg, nil
		}
	}
	return results.StudentCourse{}, results.ErrNotFound
}

func (st *resultsStore) SaveStudentCourse(ctx context.Context, agg *results.StudentCourse) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.studentCourses[agg.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *agg
	st.db.studentCourses[agg.ID] = &cp
	return nil
}

func (st *resultsStore) GetOrCreateStudentContest(ctx context.Context, studentID, contestID, courseID int64) (results.StudentContest, error) {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, sc := range st.db.studentContests {
		if sc.StudentID == studentID && sc.ContestID == contestID {
			return *sc, nil
		}
	}
	sc := results.StudentContest{ID: st.db.nextID(), StudentID: studentID, ContestID: contestID, CourseID: courseID}
	st.db.studentContests[sc.ID] = &sc
	return sc, nil
}

func (st *resultsStore) StudentContestByAuthor(ctx context.Context, contestID, authorID int64) (results.StudentContest, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	for _, sc := range st.db.studentContests {
		if sc.ContestID == contestID && sc.AuthorID.Valid && sc.AuthorID.Int64 == authorID {
			return *sc, nil
		}
	}
	return results.StudentContest{}, results.ErrNotFound
}

func (st *resultsStore) SetStudentContestAuthor(ctx context.Context, id, authorID int64) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	sc, ok := st.db.studentContests[id]
	if !ok {
		return results.ErrNotFound
	}
	sc.AuthorID.SetValid(authorID)
	return nil
}

func (st *resultsStore) ClearAuthors(ctx context.Context, studentID int64) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, sc := range st.db.studentContests {
		if sc.StudentID == studentID {
			sc.AuthorID.Valid = false
			sc.AuthorID.Int64 = 0
		}
	}
	return nil
}

func (st *resultsStore) SaveStudentContest(ctx context.Context, sc *results.StudentContest) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.studentContests[sc.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *sc
	st.db.studentContests[sc.ID] = &cp
	return nil
}

func (st *resultsStore) StudentContests(ctx context.Context, courseID, studentID int64) ([]results.StudentContest, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	scs := make([]results.StudentContest, 0)
	for _, sc := range st.db.studentContests {
		if sc.CourseID == courseID && sc.StudentID == studentID {
			scs = append(scs, *sc)
		}
	}
	sort.Slice(scs, func(i, j int) bool { return scs[i].ContestID < scs[j].ContestID })
	return scs, nil
}

func (st *resultsStore) GetOrCreateStudentTask(ctx context.Context, studentID, taskID int64) (results.StudentTask, error) {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, stk := range st.db.studentTasks {
		if stk.StudentID == studentID && stk.TaskID == taskID {
			return *stk, nil
		}
	}
	stk := results.StudentTask{ID: st.db.nextID(), StudentID: studentID, TaskID: taskID}
	st.db.studentTasks[stk.ID] = &stk
	return stk, nil
}

func (st *resultsStore) SaveStudentTask(ctx context.Context, stk *results.StudentTask) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.studentTasks[stk.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *stk
	st.db.studentTasks[stk.ID] = &cp
	return nil
}

func (st *resultsStore) StudentTasksForContest(ctx context.Context, contestID, studentID int64) ([]results.StudentTask, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	tasks := make([]results.StudentTask, 0)
	for _, stk := range st.db.studentTasks {
		if stk.StudentID != studentID {
			continue
		}
		if tsk, ok := st.db.tasks[stk.TaskID]; ok && tsk.ContestID == contestID {
			tasks = append(tasks, *stk)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID < tasks[j].TaskID })
	return tasks, nil
}

// --- levels ---

func (st *resultsStore) GetOrCreateStudentContestLevel(ctx context.Context, studentID, contestLevelID int64) (results.StudentContestLevel, error) {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, lvl := range st.db.studentContestLevels {
		if lvl.StudentID == studentID && lvl.ContestLevelID == contestLevelID {
			return *lvl, nil
		}
	}
	lvl := results.StudentContestLevel{ID: st.db.nextID(), StudentID: studentID, ContestLevelID: contestLevelID}
	st.db.studentContestLevels[lvl.ID] = &lvl
	return lvl, nil
}

func (st *resultsStore) SaveStudentContestLevel(ctx context.Context, lvl *results.StudentContestLevel) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.studentContestLevels[lvl.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *lvl
	st.db.studentContestLevels[lvl.ID] = &cp
	return nil
}

func (st *resultsStore) GetOrCreateStudentCourseLevel(ctx context.Context, studentID, courseLevelID int64) (results.StudentCourseLevel, error) {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	for _, lvl := range st.db.studentCourseLevels {
		if lvl.StudentID == studentID && lvl.CourseLevelID == courseLevelID {
			return *lvl, nil
		}
	}
	lvl := results.StudentCourseLevel{ID: st.db.nextID(), StudentID: studentID, CourseLevelID: courseLevelID}
	st.db.studentCourseLevels[lvl.ID] = &lvl
	return lvl, nil
}

func (st *resultsStore) SaveStudentCourseLevel(ctx context.Context, lvl *results.StudentCourseLevel) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.studentCourseLevels[lvl.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *lvl
	st.db.studentCourseLevels[lvl.ID] = &cp
	return nil
}

// --- submissions ---

func (st *resultsStore) SubmissionByRunID(ctx context.Context, runID int64) (results.Submission, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	for _, sub := range st.db.submissions {
		if sub.RunID == runID {
			return *sub, nil
		}
	}
	return results.Submission{}, results.ErrNotFound
}

func (st *resultsStore) CreateSubmission(ctx context.Context, sub *results.Submission) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	sub.ID = st.db.nextID()
	cp := *sub
	st.db.submissions[sub.ID] = &cp
	return nil
}

func (st *resultsStore) UpdateSubmission(ctx context.Context, sub *results.Submission) error {
	st.db.mu.Lock()
	defer st.db.mu.Unlock()
	if _, ok := st.db.submissions[sub.ID]; !ok {
		return results.ErrNotFound
	}
	cp := *sub
	st.db.submissions[sub.ID] = &cp
	return nil
}

func (st *resultsStore) LastRunID(ctx context.Context, contestID int64) (int64, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	var last int64
	for _, sub := range st.db.submissions {
		if sub.ContestID == contestID && sub.RunID > last {
			last = sub.RunID
		}
	}
	return last, nil
}

func (st *resultsStore) SubmissionsByVerdict(ctx context.Context, contestID int64, verdict string) ([]results.Submission, error) {
	st.db.mu.RLock()
	defer st.db.mu.RUnlock()
	subs := make([]results.Submission, 0)
	for _, sub := range st.db.submissions {
		if sub.ContestID == contestID && sub.Verdict == verdict {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].RunID < subs[j].RunID })
	return subs, nil
}
