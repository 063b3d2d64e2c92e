// backend/handlers/server.go
package handlers

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RouteRegistrar mounts its routes under the /api group.
type RouteRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// NewServer builds the echo instance with the shared middleware chain and
// every handler mounted under /api.
func NewServer(logger zerolog.Logger, corsOrigins []string, handlers ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(RequestID())
	e.Use(Logger(logger))
	e.Use(Recovery(logger))

	origins := corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))

	api := e.Group("/api")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return e
}
