package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zachetka/backend/core"
	"github.com/zachetka/backend/core/course"
	"github.com/zachetka/backend/core/results"
	"github.com/zachetka/backend/core/student"
)

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses")
	cg.GET("", api.query)
	cg.GET("/:short", api.retrieve)
	cg.GET("/:short/results", api.courseResults)
	cg.POST("/:short/register", api.register)
}

func (api *courseApi) getCourse(ctx echo.Context) (course.Course, error) {
	crs, err := api.deps.CourseSvc.GetByShortName(ctx.Request().Context(), ctx.Param("short"))
	if err != nil {
		if err == course.ErrNotFound {
			return course.Course{}, errHttpNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return crs, nil
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.deps.CourseSvc.QueryActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	contests, err := api.deps.CourseSvc.Contests(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying contests")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": crs, "contests": contests})
}

func (api *courseApi) courseResults(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	login := ctx.QueryParam("login")
	if login == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "login is required")
	}
	std, err := api.deps.StudentSvc.GetByLogin(ctx.Request().Context(), login)
	if err != nil {
		if err == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student")
	}

	res, err := api.deps.ResultsSvc.CourseResults(ctx.Request().Context(), std.ID, crs.ID)
	if err != nil {
		if err == results.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "student is not registered in this course")
		}
		return errors.Wrap(err, "querying results")
	}
	return ctx.JSON(http.StatusOK, res)
}

type registerRequest struct {
	Login string `json:"login" validate:"required"`
}

// register enrolls an existing student into an open-registration course.
// Safe to repeat; re-registration is a no-op.
func (api *courseApi) register(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	if !crs.IsActive || !crs.IsOpenRegistration {
		return errRegistrationClosed
	}

	var data registerRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to registerRequest")
	}
	if err = core.Validate.Struct(&data); err != nil {
		return err
	}

	std, err := api.deps.StudentSvc.GetByLogin(ctx.Request().Context(), data.Login)
	if err != nil {
		if err == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding student")
	}

	if err = api.deps.ResultsSvc.Enroll(ctx.Request().Context(), std.ID, crs); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"course": crs.ShortName, "login": std.Login})
}
