package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

func organizerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsOrganizer {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// optionalJWT authenticates the request when an Authorization header is
// present but lets anonymous requests through untouched. The wizard works
// for both kinds of visitor.
func optionalJWT() echo.MiddlewareFunc {
	conf := appJWTConfig
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(conf)
}
