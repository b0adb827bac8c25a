package course

import (
	"context"
	"errors"
	"time"

	"github.com/zachetka/backend/core"
)

var (
	// errors
	ErrNotFound     = errors.New("course not found")
	ErrCourseExists = errors.New("a course with this short name already exists")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		CourseByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Course, error)
		CourseByShortName(ctx context.Context, shortName string, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)

		CreateContest(ctx context.Context, cnt Contest, exec ...core.DBExecutor) (Contest, error)
		ContestByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Contest, error)
		// CourseContests returns a course's contests in lecture order.
		CourseContests(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]Contest, error)
		UpdateContest(ctx context.Context, cnt Contest, exec ...core.DBExecutor) (Contest, error)

		CreateTask(ctx context.Context, tsk Task, exec ...core.DBExecutor) (Task, error)
		ContestTasks(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]Task, error)
		TaskByAlias(ctx context.Context, contestID int64, alias string, exec ...core.DBExecutor) (Task, error)

		CreateCourseLevel(ctx context.Context, lvl CourseLevel, exec ...core.DBExecutor) (CourseLevel, error)
		CourseLevels(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]CourseLevel, error)
		CreateContestLevel(ctx context.Context, lvl ContestLevel, exec ...core.DBExecutor) (ContestLevel, error)
		ContestLevels(ctx context.Context, contestID int64, exec ...core.DBExecutor) ([]ContestLevel, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if _, err := svc.repo.CourseByShortName(ctx, nc.ShortName); err == nil {
		return Course{}, core.NewValidationError(ErrCourseExists,
			core.FieldError{Field: "short_name", Error: ErrCourseExists.Error()})
	} else if err != ErrNotFound {
		return Course{}, err
	}

	formula := nc.DefaultFormula
	if formula == "" {
		formula = DefaultFinalScoreFormula
	}
	now := time.Now().UTC()
	crs := Course{
		Name:               nc.Name,
		ShortName:          nc.ShortName,
		OKMethod:           nc.OKMethod,
		OKThresholdPercent: nc.OKThresholdPercent,
		IsActive:           true,
		IsOpenRegistration: nc.IsOpenRegistration,
		DefaultFormula:     formula,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByShortName(ctx context.Context, shortName string) (Course, error) {
	return svc.repo.CourseByShortName(ctx, core.CleanString(shortName, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, false)
}

func (svc *Service) QueryActive(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, true)
}

// AddContest attaches a contest to a course. The course's score_max and
// contest_count stay in lockstep with the live contest set; the periodic
// full recompute treats any divergence as a data-integrity failure.
func (svc *Service) AddContest(ctx context.Context, nc NewContest) (Contest, error) {
	crs, err := svc.repo.CourseByShortName(ctx, nc.CourseShortName)
	if err != nil {
		return Contest{}, err
	}

	formula := nc.DefaultFormula
	if formula == "" {
		formula = crs.DefaultFormula
	}
	// score_max starts at zero and accumulates as tasks are attached
	now := time.Now().UTC()
	cnt := Contest{
		CourseID:        crs.ID,
		YandexContestID: nc.YandexContestID,
		LectureNumber:   nc.LectureNumber,
		Deadline:        nc.Deadline,
		Tags:            nc.Tags,
		DefaultFormula:  formula,
		NameFormat:      nc.NameFormat,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	cnt, err = svc.repo.CreateContest(ctx, cnt)
	if err != nil {
		return Contest{}, err
	}

	crs.ContestCount++
	crs.UpdatedAt = now
	if _, err = svc.repo.UpdateCourse(ctx, crs); err != nil {
		return Contest{}, err
	}
	return cnt, nil
}

// AddTask attaches a task to a contest. The evaluation formula is
// inherited from the contest at creation time and may diverge later.
func (svc *Service) AddTask(ctx context.Context, nt NewTask) (Task, error) {
	cnt, err := svc.repo.ContestByID(ctx, nt.ContestID)
	if err != nil {
		return Task{}, err
	}

	formula := nt.Formula
	if formula == "" {
		formula = cnt.DefaultFormula
	}
	now := time.Now().UTC()
	tsk := Task{
		ContestID:      cnt.ID,
		ExternalTaskID: nt.ExternalTaskID,
		Alias:          nt.Alias,
		IsZeroOK:       nt.IsZeroOK,
		ScoreMax:       nt.ScoreMax,
		Formula:        formula,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tsk, err = svc.repo.CreateTask(ctx, tsk)
	if err != nil {
		return Task{}, err
	}

	cnt.TasksCount++
	cnt.ScoreMax = core.Round4(cnt.ScoreMax + tsk.ScoreMax)
	cnt.UpdatedAt = now
	if _, err = svc.repo.UpdateContest(ctx, cnt); err != nil {
		return Task{}, err
	}

	// course.score_max tracks the sum of its contests' score_max
	crs, err := svc.repo.CourseByID(ctx, cnt.CourseID)
	if err != nil {
		return Task{}, err
	}
	crs.ScoreMax = core.Round4(crs.ScoreMax + tsk.ScoreMax)
	crs.UpdatedAt = now
	if _, err = svc.repo.UpdateCourse(ctx, crs); err != nil {
		return Task{}, err
	}
	return tsk, nil
}

func (svc *Service) Contests(ctx context.Context, courseID int64) ([]Contest, error) {
	return svc.repo.CourseContests(ctx, courseID)
}

func (svc *Service) Tasks(ctx context.Context, contestID int64) ([]Task, error) {
	return svc.repo.ContestTasks(ctx, contestID)
}
