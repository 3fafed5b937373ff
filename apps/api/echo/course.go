package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduvault/eduvault/core"
	"github.com/eduvault/eduvault/core/course"
	"github.com/eduvault/eduvault/core/user"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

type courseApi struct {
	svc        course.Service
	userSvc    user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:        deps.CourseSvc,
		userSvc:    deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	cg := g.Group("/courses", jwt)

	cg.GET("", api.query)
	cg.POST("", api.create, roleMiddleware(api.userSvc, user.RoleTeacher, user.RoleAdmin))
	cg.GET("/teaching", api.teaching, roleMiddleware(api.userSvc, user.RoleTeacher, user.RoleAdmin))
	cg.GET("/enrolled", api.enrolled, roleMiddleware(api.userSvc, user.RoleStudent))
	cg.GET("/available", api.available, roleMiddleware(api.userSvc, user.RoleStudent))

	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/enroll", api.enroll, roleMiddleware(api.userSvc, user.RoleStudent))
	cg.DELETE("/:id/unenroll", api.unenroll, roleMiddleware(api.userSvc, user.RoleStudent))

	// instructor-of-record (or admin) only
	instructorMW := courseInstructorMiddleware(api.svc, api.userSvc)
	cg.PUT("/:id", api.update, instructorMW)
	cg.DELETE("/:id", api.destroy, instructorMW)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) teaching(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.Teaching(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying taught courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) enrolled(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.Enrolled(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) available(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.Available(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying available courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	if _, err := getContextUser(ctx, api.userSvc); err != nil {
		return err
	}
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ok := ctx.Get(contextCourseKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get(contextCourseKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	crs, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case course.ErrAlreadyEnrolled:
			return core.NewValidationError(course.ErrAlreadyEnrolled)
		}
		return errors.Wrap(err, "enrolling in course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	crs, err := api.svc.Unenroll(ctx.Request().Context(), ctx.Param("id"), ctxUsr.ID)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case course.ErrNotEnrolled:
			return core.NewValidationError(course.ErrNotEnrolled)
		}
		return errors.Wrap(err, "withdrawing from course")
	}
	return ctx.JSON(http.StatusOK, crs)
}
