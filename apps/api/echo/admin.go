package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

type adminApi struct {
	deps ServerDeps
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{deps: deps}

	ag := g.Group("/admin", jwt, adminMiddleware())

	ag.POST("/students", api.createStudent)
	ag.GET("/students", api.queryStudents)
	ag.DELETE("/students", api.deleteStudents)
	ag.POST("/students/login-migration", api.migrateLogin)

	ag.POST("/courses", api.createCourse)
	ag.POST("/courses/:short/contests", api.addContest)
	ag.POST("/contests/:id/tasks", api.addTask)
	ag.POST("/courses/:short/sync", api.syncCourse)
	ag.POST("/courses/:short/recompute", api.recompute)
}

func (api *adminApi) getCourse(ctx echo.Context) (course.Course, error) {
	crs, err := api.deps.CourseSvc.GetByShortName(ctx.Request().Context(), ctx.Param("short"))
	if err != nil {
		if err == course.ErrNotFound {
			return course.Course{}, errHttpNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return crs, nil
}

func (api *adminApi) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.deps.StudentSvc); err != nil {
		return err
	}
	std, err := api.deps.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *adminApi) queryStudents(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	students, err := api.deps.StudentSvc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *adminApi) deleteStudents(ctx echo.Context) error {
	var data struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding ids")
	}
	if err := api.deps.StudentSvc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) migrateLogin(ctx echo.Context) error {
	var data student.MigrateLogin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MigrateLogin")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	std, err := api.deps.StudentSvc.MigrateContestLogin(ctx.Request().Context(), data)
	if err != nil {
		if err == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "migrating contest login")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	crs, err := api.deps.CourseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *adminApi) addContest(ctx echo.Context) error {
	var data course.NewContest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContest")
	}
	data.CourseShortName = ctx.Param("short")
	if err := data.Validate(); err != nil {
		return err
	}
	cnt, err := api.deps.CourseSvc.AddContest(ctx.Request().Context(), data)
	if err != nil {
		if err == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding contest")
	}
	return ctx.JSON(http.StatusCreated, cnt)
}

func (api *adminApi) addTask(ctx echo.Context) error {
	contestID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid contest id")
	}

	var data course.NewTask
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	data.ContestID = contestID
	if err = data.Validate(); err != nil {
		return err
	}
	tsk, err := api.deps.CourseSvc.AddTask(ctx.Request().Context(), data)
	if err != nil {
		if err == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding task")
	}
	return ctx.JSON(http.StatusCreated, tsk)
}

// syncCourse triggers a sync pass for one course out of schedule. The run
// happens in the background; failures go to the operator channel as usual.
func (api *adminApi) syncCourse(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	go func() {
		if err := api.deps.Orchestrator.SyncCourse(context.Background(), crs); err != nil {
			api.deps.Logger.Error("manual sync: "+crs.ShortName, err)
		}
	}()
	return ctx.JSON(http.StatusAccepted, echo.Map{"course": crs.ShortName, "status": "sync started"})
}

func (api *adminApi) recompute(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	if err = api.deps.ResultsSvc.UpdateCourseResults(ctx.Request().Context(), crs); err != nil {
		var cerr *results.ConsistencyError
		if errors.As(err, &cerr) {
			return echo.NewHTTPError(http.StatusConflict, cerr.Error())
		}
		return errors.Wrap(err, "recomputing course")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": crs.ShortName, "status": "consistent"})
}
