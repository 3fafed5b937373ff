package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduvault/eduvault/core/course"
	"github.com/eduvault/eduvault/core/user"
)

var contextCourseKey = "course"

// roleMiddleware only lets through requests whose account holds one of the
// given roles.
func roleMiddleware(svc user.Service, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextUser(ctx, svc); err != nil {
				return err
			}
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// courseInstructorMiddleware loads the course at :id into context and only
// lets through its instructor of record, or an admin.
func courseInstructorMiddleware(courseSvc course.Service, userSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, userSvc)
			if err != nil {
				return err
			}

			crs, err := courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}

			if crs.InstructorID != ctxUsr.ID && !ctxUsr.IsAdmin() {
				return errHttpForbidden
			}

			ctx.Set(contextCourseKey, crs)
			return next(ctx)
		}
	}
}
