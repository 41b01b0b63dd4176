package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RouteFunc lets a plain function act as a Handler.
type RouteFunc func(e *echo.Echo)

func (f RouteFunc) RegisterRoutes(e *echo.Echo) { f(e) }
