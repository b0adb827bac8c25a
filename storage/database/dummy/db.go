package dummydb

import (
	"sync"

	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

// DB is an in-memory stand-in for the real database, used in tests. One
// coarse lock guards everything; "transactions" are plain pass-throughs.
type DB struct {
	mu  sync.RWMutex
	seq int64

	students             map[int64]*student.Student
	courses              map[int64]*course.Course
	contests             map[int64]*course.Contest
	tasks                map[int64]*course.Task
	courseLevels         map[int64]*course.CourseLevel
	contestLevels        map[int64]*course.ContestLevel
	submissions          map[int64]*results.Submission
	studentTasks         map[int64]*results.StudentTask
	studentContests      map[int64]*results.StudentContest
	studentCourses       map[int64]*results.StudentCourse
	studentContestLevels map[int64]*results.StudentContestLevel
	studentCourseLevels  map[int64]*results.StudentCourseLevel
}

func Open() *DB {
	return &DB{
		students:             make(map[int64]*student.Student),
		courses:              make(map[int64]*course.Course),
		contests:             make(map[int64]*course.Contest),
		tasks:                make(map[int64]*course.Task),
		courseLevels:         make(map[int64]*course.CourseLevel),
		contestLevels:        make(map[int64]*course.ContestLevel),
		submissions:          make(map[int64]*results.Submission),
		studentTasks:         make(map[int64]*results.StudentTask),
		studentContests:      make(map[int64]*results.StudentContest),
		studentCourses:       make(map[int64]*results.StudentCourse),
		studentContestLevels: make(map[int64]*results.StudentContestLevel),
		studentCourseLevels:  make(map[int64]*results.StudentCourseLevel),
	}
}

// nextID must be called with the lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}
