package http

import "github.com/labstack/echo/v4"

// Handler is anything that can attach its routes to the Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
