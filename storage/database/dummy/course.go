package dummydb

import (
	"context"
	"sort"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	crs.ID = repo.db.nextID()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo courseRepository) CourseByID(ctx context.Context, id int64, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo courseRepository) CourseByShortName(ctx context.Context, shortName string, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, crs := range repo.db.courses {
		if crs.ShortName == shortName {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo courseRepository) QueryCourses(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	courses := make([]course.Course, 0)
	for _, crs := range repo.db.courses {
		if activeOnly && !crs.IsActive {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ShortName < courses[j].ShortName })
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo courseRepository) CreateContest(ctx context.Context, cnt course.Contest, exec ...core.DBExecutor) (course.Contest, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	cnt.ID = repo.db.nextID()
	repo.db.contests[cnt.ID] = &cnt
	return cnt, nil
}

func (repo courseRepository) ContestByID(ctx context.Context, id int64, exec ...core.DBExecutor) (course.Contest, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	if cnt, ok := repo.db.contests[id]; ok {
		return *cnt, nil
	}
	return course.Contest{}, course.ErrNotFound
}

func (repo courseRepository) CourseContests(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]course.Contest, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	contests := make([]course.Contest, 0)
	for _, cnt := range repo.db.contests {
		if cnt.CourseID == courseID {
			contests = append(contests, *cnt)
		}
	}
	sort.Slice(contests, func(i, j int) bool {
		if contests[i].LectureNumber != contests[j].LectureNumber {
			return contests[i].LectureNumber < contests[j].LectureNumber
		}
		return contests[i].ID < contests[j].ID
	})
	return contests, nil
}

func (repo courseRepository) UpdateContest(ctx context.Context, cnt course.Contest, exec ...core.DBExecutor) (course.Contest, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if _, ok := repo.db.contests[cnt.ID]; !ok {
		return course.Contest{}, course.ErrNotFound
	}
	repo.db.contests[cnt.ID] = &cnt
	return cnt, nil
}

func (repo courseRepository) CreateTask(ctx context.Context, tsk course.Task, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	tsk.ID = repo.db.nextID()
	repo.db.tasks[tsk.ID] = &tsk
	return tsk, nil
}

func (repo courseRepository) ContestTasks(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]course.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	tasks := make([]course.Task, 0)
	for _, tsk := range repo.db.tasks {
		if tsk.ContestID == contestID {
			tasks = append(tasks, *tsk)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Alias < tasks[j].Alias })
	return tasks, nil
}

func (repo courseRepository) TaskByAlias(ctx context.Context, contestID int64, alias string, exec ...core.DBExecutor) (course.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	for _, tsk := range repo.db.tasks {
		if tsk.ContestID == contestID && tsk.Alias == alias {
			return *tsk, nil
		}
	}
	return course.Task{}, course.ErrNotFound
}

func (repo courseRepository) CreateCourseLevel(ctx context.Context, lvl course.CourseLevel, exec ...core.DBExecutor) (course.CourseLevel, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	lvl.ID = repo.db.nextID()
	repo.db.courseLevels[lvl.ID] = &lvl
	return lvl, nil
}

func (repo courseRepository) CourseLevels(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]course.CourseLevel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	levels := make([]course.CourseLevel, 0)
	for _, lvl := range repo.db.courseLevels {
		if lvl.CourseID == courseID {
			levels = append(levels, *lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].ID < levels[j].ID })
	return levels, nil
}

func (repo courseRepository) CreateContestLevel(ctx context.Context, lvl course.ContestLevel, exec ...core.DBExecutor) (course.ContestLevel, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	lvl.ID = repo.db.nextID()
	repo.db.contestLevels[lvl.ID] = &lvl
	return lvl, nil
}

func (repo courseRepository) ContestLevels(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]course.ContestLevel, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	levels := make([]course.ContestLevel, 0)
	for _, lvl := range repo.db.contestLevels {
		if lvl.ContestID == contestID {
			levels = append(levels, *lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].ID < levels[j].ID })
	return levels, nil
}
